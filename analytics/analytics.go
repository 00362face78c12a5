package analytics

type DataCollectorConfig struct {
	FileName      string
	CollectorType DataCollectorType
}

type DataCollectorType string

const LOG_FILE_DATA_COLLECTOR DataCollectorType = "LOG_FILE_DATA_COLLECTOR"
const NOOP_DATA_COLLECTOR DataCollectorType = "NOOP"

// StepDataCollector records the outcome of every step a run executes.
type StepDataCollector interface {
	RecordStepSuccess(flowId string, recipient string, stepId string, stepKind string, event string)
	RecordStepFailure(flowId string, recipient string, stepId string, stepKind string, reason string)
	RecordRunStatus(flowId string, recipient string, status string)
}

func NewDataCollector(config DataCollectorConfig) (StepDataCollector, error) {
	switch config.CollectorType {
	case LOG_FILE_DATA_COLLECTOR:
		return NewLogFileDataCollector(config.FileName)
	}
	return NoopCollector{}, nil
}

var _ StepDataCollector = NoopCollector{}

type NoopCollector struct{}

func (NoopCollector) RecordStepSuccess(flowId string, recipient string, stepId string, stepKind string, event string) {
}

func (NoopCollector) RecordStepFailure(flowId string, recipient string, stepId string, stepKind string, reason string) {
}

func (NoopCollector) RecordRunStatus(flowId string, recipient string, status string) {}
