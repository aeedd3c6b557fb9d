package resume

import (
	"context"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/vibhu2208/candidate-indexer/internal/logger"
	"github.com/vibhu2208/candidate-indexer/internal/metrics"
)

const summaryMaxTokens = 5120

// Summarizer condenses resume text into a structured skill summary
// before chunking and embedding. Summaries embed better than raw
// resumes: they strip boilerplate and surface comparable skill terms.
type Summarizer struct {
	client *openai.Client
	model  string
}

// SummarizerConfig holds the chat completion settings.
type SummarizerConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// NewSummarizer creates an OpenAI-compatible summarizer.
func NewSummarizer(cfg SummarizerConfig) *Summarizer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Summarizer{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
	}
}

// Summarize joins docs and asks the model for the structured summary.
// On any failure it falls back to the joined raw text so indexing never
// stalls on the model.
func (s *Summarizer) Summarize(ctx context.Context, docs ...string) string {
	log := logger.FromContext(ctx)
	document := strings.Join(docs, "\n\n")

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: summaryPrompt(document)},
		},
		Temperature: 0,
		MaxTokens:   summaryMaxTokens,
	})
	if err != nil {
		metrics.SummarizerFallbacks.Inc()
		log.Warn("summarization failed, falling back to raw text", zap.Error(err))
		return document
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		metrics.SummarizerFallbacks.Inc()
		log.Warn("summarization returned no content, falling back to raw text")
		return document
	}
	return resp.Choices[0].Message.Content
}

func summaryPrompt(document string) string {
	return `
    Extract key information from this resume following this exact format:

    <Output Template>
    Technical Skills (if any):
    [List specific technical tools, technologies, platforms with clear evidence of use]

    Demonstrated Skills:
    [List specific non-technical skills and competencies shown through work]

    Core Activities:
    [List specific implementations, projects, and achievements]

    Professional Background:
    [List relevant education, certifications, and experience progression]

    Domain Experience:
    [List specific industries and specialized areas worked in]

    Work Context:
    [List types of environments, products/services, and audiences served]
    </Output Template>

    <Example Technical Resume Input>
    Built AWS infrastructure for healthcare startup. Implemented Python monitoring systems. Created patient portal using React. BS in Computer Science. Led development of medical billing system.
    </Example Technical Resume Input>

    <Example Technical Output>
    Technical Skills:
    AWS, Python, React

    Demonstrated Skills:
    Infrastructure development, system monitoring, technical leadership

    Core Activities:
    Build cloud infrastructure, implement monitoring systems, create healthcare portals, lead development teams

    Professional Background:
    Bachelor's in Computer Science

    Domain Experience:
    Healthcare technology, medical systems

    Work Context:
    Startup environment, healthcare applications, patient-facing systems
    </Example Technical Output>

    <Example Non-Technical Resume Input>
    Developed new math curriculum for grades 6-8. Led team of 5 teachers. Increased student test scores by 25%. Master's in Education, certified math teacher.
    </Example Non-Technical Resume Input>

    <Example Non-Technical Output>
    Technical Skills:
    None specified

    Demonstrated Skills:
    Curriculum development, team leadership, mathematics instruction

    Core Activities:
    Develop curriculum, lead teaching team, improve student performance metrics

    Professional Background:
    Master's in Education, teaching certification

    Domain Experience:
    Middle school education, mathematics education

    Work Context:
    Classroom environment, standardized testing, team leadership
    </Example Non-Technical Output>

    Important:
    - Separate technical skills from other skills when present
    - Include only skills and experience with clear evidence
    - Focus on specific accomplishments and activities
    - Maintain consistent phrasing
    - List concrete details rather than general claims
    - Avoid using quantities (e.g. 5 years, 3+ years)

    <Resume Input>
    ` + document + `
    </Resume Input>

    Respond with only what's inside the <Output Template />.`
}
