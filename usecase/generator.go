package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/firdraft/domain"
	"github.com/satriahrh/firdraft/domain/entities"
	"github.com/satriahrh/firdraft/domain/repositories"
)

const defaultGenerationTimeout = 60 * time.Second

// DraftGenerator turns a finished transcript into FIR draft text
type DraftGenerator struct {
	llm     repositories.TextGenerator
	timeout time.Duration
	logger  *zap.Logger
}

// NewDraftGenerator creates a generator; a zero timeout uses the default
func NewDraftGenerator(llm repositories.TextGenerator, timeout time.Duration, logger *zap.Logger) *DraftGenerator {
	if timeout <= 0 {
		timeout = defaultGenerationTimeout
	}
	return &DraftGenerator{
		llm:     llm,
		timeout: timeout,
		logger:  logger,
	}
}

// BuildPrompt embeds the statement and the target language in a single request
func BuildPrompt(transcript string, language entities.Language) string {
	name := language.DisplayName()
	return fmt.Sprintf(
		"You are an expert AI assistant for drafting legal documents in India. "+
			"Analyze the user's statement which is in %s and generate a structured "+
			"First Information Report (FIR) in %s. After the FIR, suggest potential "+
			"sections of the Indian Penal Code (IPC). User's Statement: %q",
		name, name, transcript)
}

// Generate calls the text generator exactly once and returns its text verbatim
func (g *DraftGenerator) Generate(ctx context.Context, transcript string, language entities.Language) (string, error) {
	if !language.IsValid() {
		return "", domain.ErrUnsupportedLanguage
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	started := time.Now()
	text, err := g.llm.Generate(ctx, BuildPrompt(transcript, language))
	if err != nil {
		var genErr *domain.GenerationError
		if !errors.As(err, &genErr) {
			genErr = domain.GenerationFailed(err.Error(), err)
		}
		g.logger.Warn("Draft generation failed",
			zap.String("language", string(language)),
			zap.Duration("elapsed", time.Since(started)),
			zap.Error(err))
		return "", genErr
	}

	g.logger.Info("Draft generated",
		zap.String("language", string(language)),
		zap.Int("transcriptLength", len(transcript)),
		zap.Int("draftLength", len(text)),
		zap.Duration("elapsed", time.Since(started)))

	return text, nil
}
