package recorder

// NoopRecorder is used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordScan(_ *ScanRun) error          { return nil }
func (n *NoopRecorder) RecentScans(_ int) ([]ScanRun, error) { return nil, nil }
func (n *NoopRecorder) Close() error                         { return nil }
