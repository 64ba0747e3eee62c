package signal

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestSetupSignalHandler_ParentCancel(t *testing.T) {
	parent, cancelParent := context.WithCancel(context.Background())
	ctx, stop := SetupSignalHandler(parent)
	defer stop()

	cancelParent()
	<-ctx.Done()
	if ctx.Err() == nil {
		t.Error("context should be cancelled with its parent")
	}
}

func TestWriteCancellationMessage(t *testing.T) {
	var buf bytes.Buffer
	writeCancellationMessage(&buf, "synth")
	if !strings.Contains(buf.String(), "synth cancelled") {
		t.Errorf("message = %q", buf.String())
	}
}
