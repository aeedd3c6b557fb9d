// Package event decides what a queue message asks the consumer to do.
//
// Two shapes arrive on the same queues: direct index messages published
// by the extraction path, and object storage notifications forwarded
// when a resume or answer file changes. The messageSource attribute
// disambiguates them.
package event

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/vibhu2208/candidate-indexer/internal/domain"
	"github.com/vibhu2208/candidate-indexer/internal/logger"
	"github.com/vibhu2208/candidate-indexer/internal/queue"
)

const (
	eventTypeCreated = "ObjectCreated"
	eventTypeRemoved = "ObjectRemoved"
)

// storageNotification is the object storage event envelope.
type storageNotification struct {
	Records []storageRecord `json:"Records"`
}

type storageRecord struct {
	EventName string `json:"eventName"`
	S3        struct {
		Object struct {
			Key string `json:"key"`
		} `json:"object"`
	} `json:"s3"`
}

// Parse maps one queue message to the index operations it carries.
// Malformed payloads and unknown event names yield a single no-op
// record so one bad message never fails the batch around it.
func Parse(ctx context.Context, msg queue.Message) []domain.IndexItemMessage {
	log := logger.FromContext(ctx)

	if msg.MessageSource == domain.MessageSourceIndexer {
		var item domain.IndexItemMessage
		if err := json.Unmarshal([]byte(msg.Body), &item); err != nil {
			log.Error("invalid index message", zap.Error(err))
			return []domain.IndexItemMessage{{}}
		}
		return []domain.IndexItemMessage{item}
	}

	var notification storageNotification
	if err := json.Unmarshal([]byte(msg.Body), &notification); err != nil {
		log.Error("invalid storage notification", zap.Error(err))
		return []domain.IndexItemMessage{{}}
	}
	if len(notification.Records) == 0 {
		log.Warn("storage notification carries no records")
		return []domain.IndexItemMessage{{}}
	}

	items := make([]domain.IndexItemMessage, 0, len(notification.Records))
	for _, record := range notification.Records {
		items = append(items, parseRecord(log, record))
	}
	return items
}

func parseRecord(log *zap.Logger, record storageRecord) domain.IndexItemMessage {
	key := record.S3.Object.Key
	eventType, _, _ := strings.Cut(record.EventName, ":")

	switch eventType {
	case eventTypeCreated:
		return domain.IndexItemMessage{Operation: domain.OpUpdate, CandidateID: candidateIDFromKey(key), ObjectKey: key}
	case eventTypeRemoved:
		return domain.IndexItemMessage{Operation: domain.OpRemove, CandidateID: candidateIDFromKey(key), ObjectKey: key}
	default:
		log.Warn("unsupported storage event", zap.String("event_name", record.EventName))
		return domain.IndexItemMessage{}
	}
}

// candidateIDFromKey extracts the candidate id from an object key like
// resumes/98765.pdf: the file name stem before the last dot.
func candidateIDFromKey(key string) string {
	fileName := key
	if i := strings.LastIndex(key, "/"); i >= 0 {
		fileName = key[i+1:]
	}
	if i := strings.LastIndex(fileName, "."); i >= 0 {
		return fileName[:i]
	}
	return fileName
}
