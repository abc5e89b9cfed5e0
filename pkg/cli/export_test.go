package cli

import (
	"context"
	"io"
	"time"

	"github.com/venquis/contractchat/pkg/client"
	"github.com/venquis/contractchat/pkg/orchestrator"
)

type noSleep struct{}

func (noSleep) Sleep(context.Context, time.Duration) error { return nil }

// RunChatForTest drives a terminal session against serverURL without
// waiting between retries
func RunChatForTest(ctx context.Context, serverURL string, in io.Reader, out io.Writer) error {
	s := newChatSession(client.New(serverURL), out, orchestrator.WithSleeper(noSleep{}))
	return s.run(ctx, in)
}

// IndexConfigForTest exposes the Firestore index definition
var IndexConfigForTest = getIndexConfig
