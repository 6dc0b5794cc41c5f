package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	FieldRequestID   = "request_id"
	FieldUserID      = "user_id"
	FieldAnalysisID  = "analysis_id"
	FieldInterviewID = "interview_id"
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts the provided key/value pairs into zap fields, trimming
// whitespace and omitting entries with empty keys or values.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			continue
		}

		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields safely attaches the provided fields to the logger.
// A nil logger becomes a no-op logger.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// SessionFields describes an interview session. Empty ids are skipped.
func SessionFields(analysisID, interviewID string) []zap.Field {
	return StringFields(
		StringField{Key: FieldAnalysisID, Value: analysisID},
		StringField{Key: FieldInterviewID, Value: interviewID},
	)
}

func WithSession(logger *zap.Logger, analysisID, interviewID string) *zap.Logger {
	return WithFields(logger, SessionFields(analysisID, interviewID)...)
}
