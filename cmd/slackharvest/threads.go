package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var threadsCmd = &cobra.Command{
	Use:   "threads",
	Short: "Export all thread-starting messages of the channel",
	Long: `Walks the channel history page by page, keeps every message that
starts a thread, resolves a permalink for each and writes the result to
threads.json (plus a CSV rendering).

The newest exported timestamp is persisted as the resume boundary:
rerunning the command only fetches history newer than the previous
run's coverage and appends it to the existing snapshot.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := newRunner()
		if err != nil {
			return err
		}

		ctx, cancel := signalContext()
		defer cancel()

		return r.ExportThreads(ctx)
	},
}

var repliesCmd = &cobra.Command{
	Use:   "replies",
	Short: "Export the replies of every exported thread",
	Long: `Reads threads.json produced by 'slackharvest threads' and fetches
the replies of each thread on a bounded worker pool, committing them to
replies.json one thread at a time in thread order.

The index of the next uncommitted thread is persisted after every
commit, so an interrupted run resumes at the first unprocessed thread.
When all threads are done the index resets, and the next invocation
starts from the top of the (possibly grown) thread list.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := newRunner()
		if err != nil {
			return err
		}

		ctx, cancel := signalContext()
		defer cancel()

		return r.ExportReplies(ctx)
	},
}

// signalContext returns a context cancelled by SIGINT/SIGTERM. Progress
// is durable after every unit, so cancellation mid-run loses nothing.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func init() {
	rootCmd.AddCommand(threadsCmd)
	rootCmd.AddCommand(repliesCmd)
}
