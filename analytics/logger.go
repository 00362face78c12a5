package analytics

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var _ StepDataCollector = new(LogFileDataCollector)

type LogFileDataCollector struct {
	fileName string
	logger   *zap.Logger
}

func NewLogFileDataCollector(fileName string) (*LogFileDataCollector, error) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.StacktraceKey = ""
	fileEncoder := zapcore.NewJSONEncoder(encoderConfig)
	logFile, err := os.OpenFile(fileName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	writer := zapcore.AddSync(logFile)
	core := zapcore.NewCore(fileEncoder, writer, zapcore.InfoLevel)
	return &LogFileDataCollector{
		fileName: fileName,
		logger:   zap.New(core),
	}, nil
}

func (lc *LogFileDataCollector) RecordStepSuccess(flowId string, recipient string, stepId string, stepKind string, event string) {
	lc.logger.Info("success", zap.String("flowId", flowId), zap.String("recipient", recipient), zap.String("step", stepId), zap.String("kind", stepKind), zap.String("event", event))
}

func (lc *LogFileDataCollector) RecordStepFailure(flowId string, recipient string, stepId string, stepKind string, reason string) {
	lc.logger.Info("failure", zap.String("flowId", flowId), zap.String("recipient", recipient), zap.String("step", stepId), zap.String("kind", stepKind), zap.String("reason", reason))
}

func (lc *LogFileDataCollector) RecordRunStatus(flowId string, recipient string, status string) {
	lc.logger.Info("run", zap.String("flowId", flowId), zap.String("recipient", recipient), zap.String("status", status))
}

func (lc *LogFileDataCollector) Close() error {
	return lc.logger.Sync()
}
