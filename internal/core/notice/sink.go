package notice

import (
	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"
)

// LogSink writes notices to a structured logger.
type LogSink struct {
	Logger *logging.Logger
	Fields []zap.Field
}

func (s LogSink) ShowNotice(n Notice) {
	if s.Logger == nil {
		return
	}
	fields := append([]zap.Field{
		zap.String("notice_id", n.ID),
		zap.String("severity", string(n.Severity)),
	}, s.Fields...)

	if n.Severity == SeverityWarning {
		s.Logger.Warn(n.Message, fields...)
		return
	}
	s.Logger.Info(n.Message, fields...)
}

func (s LogSink) RemoveNotice(n Notice) {
	if s.Logger == nil {
		return
	}
	s.Logger.Debug("Notice removed", append([]zap.Field{zap.String("notice_id", n.ID)}, s.Fields...)...)
}

func (s LogSink) ShowAlert(a Alert) {
	if s.Logger == nil {
		return
	}
	s.Logger.Warn(a.Message, append([]zap.Field{zap.String("alert", a.Title)}, s.Fields...)...)
}

func (s LogSink) CloseAlert() {}
