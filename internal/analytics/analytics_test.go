package analytics

import (
	"testing"

	"github.com/fulmenhq/gofulmen/logging"
	"github.com/stretchr/testify/require"
)

func TestRecorderTrimsLabels(t *testing.T) {
	rec := &Recorder{}
	rec.Track("Button", "Click", "  Enroll Now\n")

	require.Equal(t, []Event{{Category: "Button", Action: "Click", Label: "Enroll Now"}}, rec.Events())
}

func TestLogTracker(t *testing.T) {
	logger, err := logging.NewCLI("analytics-test")
	require.NoError(t, err)

	LogTracker{Logger: logger}.Track("Button", "Click", "Enroll")
	LogTracker{}.Track("Button", "Click", "Enroll")
}
