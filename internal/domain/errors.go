package domain

import "errors"

// Sentinel errors shared across layers. Wrap with fmt.Errorf("...: %w", err)
// and match with errors.Is.
var (
	// ErrDocumentNotFound - candidate metadata document does not exist.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrQueryFailed - warehouse query reached the FAILED state.
	ErrQueryFailed = errors.New("warehouse query failed")

	// ErrUnsupportedDocType - resume content type is not PDF/DOC/DOCX.
	ErrUnsupportedDocType = errors.New("unsupported document type")

	// ErrMissingConfig - required runtime configuration is absent.
	// Indicates a deployment defect, never a data problem.
	ErrMissingConfig = errors.New("missing required configuration")

	// ErrSchemaNotLoaded - BFQ questions schema could not be loaded.
	ErrSchemaNotLoaded = errors.New("bfq schema not loaded")
)
