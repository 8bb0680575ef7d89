package stt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/satriahrh/firdraft/domain/repositories"
)

// GoogleSpeechToText implements SpeechToText for Google Cloud
type GoogleSpeechToText struct {
	logger *zap.Logger
}

// NewGoogleSpeechToText creates a Google Cloud Speech recognizer
func NewGoogleSpeechToText(logger *zap.Logger) *GoogleSpeechToText {
	return &GoogleSpeechToText{logger: logger}
}

// Probe checks that a client can be created with the ambient credentials
func (g *GoogleSpeechToText) Probe(ctx context.Context) repositories.Capability {
	client, err := speech.NewClient(ctx)
	if err != nil {
		g.logger.Warn("Google Speech client unavailable", zap.Error(err))
		return repositories.Unavailable(err.Error())
	}
	client.Close()
	return repositories.Available()
}

func (g *GoogleSpeechToText) InitTranscribeStreaming(ctx context.Context, config repositories.AudioConfig) (repositories.SpeechToTextStreaming, error) {
	encoding, err := getAudioEncoding(config.Encoding)
	if err != nil {
		return nil, err
	}

	client, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}

	stream, err := client.StreamingRecognize(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to create streaming recognize: %w", err)
	}

	// Continuous recognition with interim results; the caller decides when to stop
	if err := stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Encoding:                   encoding,
					SampleRateHertz:            int32(config.SampleRate),
					LanguageCode:               config.Language,
					EnableAutomaticPunctuation: true,
				},
				InterimResults:  true,
				SingleUtterance: false,
			},
		},
	}); err != nil {
		stream.CloseSend()
		client.Close()
		return nil, fmt.Errorf("failed to send streaming config: %w", err)
	}

	s := &GoogleSpeechToTextStream{
		client: client,
		stream: stream,
		events: make(chan repositories.RecognitionEvent, 32),
		logger: g.logger,
	}
	go s.receiveResults()

	g.logger.Info("Google streaming recognition started",
		zap.String("language", config.Language),
		zap.String("encoding", config.Encoding),
		zap.Int("sampleRate", config.SampleRate))

	return s, nil
}

// GoogleSpeechToTextStream is one live StreamingRecognize call
type GoogleSpeechToTextStream struct {
	client *speech.Client
	stream speechpb.Speech_StreamingRecognizeClient
	events chan repositories.RecognitionEvent
	logger *zap.Logger

	sendMu   sync.Mutex
	stopped  bool
	stopOnce sync.Once
}

func (g *GoogleSpeechToTextStream) Stream(data []byte) error {
	if len(data) == 0 {
		return nil
	}

	g.sendMu.Lock()
	defer g.sendMu.Unlock()
	if g.stopped {
		return fmt.Errorf("recognition stream already stopped")
	}

	if err := g.stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
			AudioContent: data,
		},
	}); err != nil {
		return fmt.Errorf("failed to send audio data: %w", err)
	}
	return nil
}

func (g *GoogleSpeechToTextStream) Events() <-chan repositories.RecognitionEvent {
	return g.events
}

// Stop half-closes the stream; Google flushes the remaining finals and then EOF
func (g *GoogleSpeechToTextStream) Stop() error {
	var err error
	g.stopOnce.Do(func() {
		g.sendMu.Lock()
		g.stopped = true
		err = g.stream.CloseSend()
		g.sendMu.Unlock()
	})
	return err
}

func (g *GoogleSpeechToTextStream) receiveResults() {
	defer close(g.events)
	defer g.client.Close()

	for {
		resp, err := g.stream.Recv()
		if err == io.EOF {
			g.events <- repositories.End()
			return
		}
		if err != nil {
			if code := FailureCode(err); code != "" {
				g.logger.Warn("Google streaming recognition failed", zap.String("code", code), zap.Error(err))
				g.events <- repositories.Failure(code)
			}
			g.events <- repositories.End()
			return
		}

		for _, event := range ResponseEvents(resp) {
			g.events <- event
		}
	}
}

// ResponseEvents maps one StreamingRecognizeResponse to fragment events
func ResponseEvents(resp *speechpb.StreamingRecognizeResponse) []repositories.RecognitionEvent {
	if resp == nil {
		return nil
	}
	if resp.Error != nil && resp.Error.Code != 0 {
		return []repositories.RecognitionEvent{repositories.Failure(codeName(codes.Code(resp.Error.Code)))}
	}

	var events []repositories.RecognitionEvent
	for _, result := range resp.Results {
		if len(result.Alternatives) == 0 {
			continue
		}
		text := result.Alternatives[0].Transcript
		if result.IsFinal {
			// finals are joined without separators, so keep word boundaries
			if text != "" && !strings.HasSuffix(text, " ") {
				text += " "
			}
		}
		events = append(events, repositories.Fragment(text, result.IsFinal))
	}
	return events
}

// FailureCode turns a Recv error into a recognition error code.
// Cancellation is a normal teardown and yields no code.
func FailureCode(err error) string {
	if err == nil || errors.Is(err, context.Canceled) {
		return ""
	}
	st, ok := status.FromError(err)
	if !ok {
		return "network"
	}
	if st.Code() == codes.Canceled {
		return ""
	}
	return codeName(st.Code())
}

func codeName(code codes.Code) string {
	switch code {
	case codes.Unavailable:
		return "network"
	case codes.PermissionDenied, codes.Unauthenticated:
		return "not-allowed"
	case codes.OutOfRange, codes.DeadlineExceeded:
		return "no-speech"
	case codes.InvalidArgument:
		return "bad-audio"
	case codes.Aborted:
		return "aborted"
	default:
		return strings.ToLower(code.String())
	}
}

// getAudioEncoding converts string encoding to Google Speech API enum
func getAudioEncoding(encoding string) (speechpb.RecognitionConfig_AudioEncoding, error) {
	switch encoding {
	case "WAV", "LINEAR16":
		return speechpb.RecognitionConfig_LINEAR16, nil
	case "FLAC":
		return speechpb.RecognitionConfig_FLAC, nil
	case "MULAW":
		return speechpb.RecognitionConfig_MULAW, nil
	case "OGG_OPUS":
		return speechpb.RecognitionConfig_OGG_OPUS, nil
	case "WEBM_OPUS":
		return speechpb.RecognitionConfig_WEBM_OPUS, nil
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, fmt.Errorf("unsupported audio encoding: %s", encoding)
	}
}
