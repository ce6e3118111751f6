package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordCommandOutcomes(t *testing.T) {
	Init()
	Init()

	before := testutil.ToFloat64(commandsTotal.WithLabelValues("fallback"))
	RecordCommand(true, 10*time.Millisecond)
	after := testutil.ToFloat64(commandsTotal.WithLabelValues("fallback"))

	if after-before != 1 {
		t.Fatalf("fallback counter moved by %v, want 1", after-before)
	}
}

func TestRecordDispatchLabelsMissingAction(t *testing.T) {
	before := testutil.ToFloat64(dispatchTotal.WithLabelValues("none"))
	RecordDispatch("")
	if got := testutil.ToFloat64(dispatchTotal.WithLabelValues("none")) - before; got != 1 {
		t.Fatalf("none counter moved by %v, want 1", got)
	}
}
