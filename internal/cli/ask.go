package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/mindmap/pkg/diagram"
	mmerrors "github.com/matzehuels/mindmap/pkg/errors"
	"github.com/matzehuels/mindmap/pkg/outline"
	"github.com/matzehuels/mindmap/pkg/source"
)

const answerPoll = 20 * time.Millisecond

// askCommand creates the ask command for follow-up questions.
func (c *CLI) askCommand() *cobra.Command {
	var (
		output  string
		service string
		answer  string
		noCache bool
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "ask [file|store:<id>] [node] [question...]",
		Short: "Ask a follow-up question about a node",
		Long: `Ask a follow-up question about a node.

The node may be given by ID or by a fuzzy match on its title. A pending
question node is inserted beneath it next to its existing children, without
moving any other node, and the answer is fetched from the answer service
configured as [service] ask_url (or --service). When the answer arrives it
becomes the node's description.

Without a service, --answer supplies the answer text directly. Answers are
cached locally by node and question.

The updated diagram is written back to JSON and store inputs, or to
<input>.layout.json for other files.`,
		Args: cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args[2:], " ")
			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			asker, err := c.newAsker(service, answer, noCache)
			if err != nil {
				return err
			}
			return c.runAsk(ctx, args[0], args[1], question, output, asker)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file or store:<id>")
	cmd.Flags().StringVar(&service, "service", "", "answer service URL (default from config)")
	cmd.Flags().StringVar(&answer, "answer", "", "answer text to use when no service is configured")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable answer caching")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "give up waiting for the answer after this long")

	return cmd
}

func (c *CLI) runAsk(ctx context.Context, input, node, question, output string, asker source.Asker) error {
	d, err := c.openDiagram(ctx, input)
	if err != nil {
		return err
	}
	parentID, err := resolveNode(d.Outline(), node)
	if err != nil {
		return err
	}

	loopCtx, stop := context.WithCancel(context.WithoutCancel(ctx))
	loop := diagram.NewLoop(d)
	loopDone := make(chan error, 1)
	go func() { loopDone <- loop.Run(loopCtx) }()
	defer func() {
		stop()
		<-loopDone
	}()

	failed := make(chan error, 1)
	tracked := source.AskerFunc(func(ctx context.Context, id, q string) (string, error) {
		a, err := asker.Ask(ctx, id, q)
		failed <- err
		return a, err
	})

	spinner := newSpinnerWithContext(ctx, "Waiting for answer...")
	spinner.Start()
	id, err := loop.Ask(ctx, parentID, question, tracked)
	if err != nil {
		spinner.StopWithError("Could not ask")
		return err
	}

	answered, err := waitAnswered(ctx, loop, id, failed)
	if err != nil {
		spinner.StopWithError("No answer")
		// The pending question is still saved so it can be answered later.
		if werr := c.saveAsk(ctx, loop, input, output); werr != nil {
			c.Logger.Warn("could not save pending question", "err", werr)
		}
		return fmt.Errorf("answer %q: %w", question, err)
	}
	spinner.Stop()

	if err := c.saveAsk(ctx, loop, input, output); err != nil {
		return err
	}

	printSuccess("%s", answered.Title)
	fmt.Println(answered.Description)
	printNewline()
	printDetail("Node %s", id)
	return nil
}

// waitAnswered blocks until the follow-up id is answered on the loop or the
// asker reports a failure.
func waitAnswered(ctx context.Context, loop *diagram.Loop, id string, failed <-chan error) (outline.Node, error) {
	ticker := time.NewTicker(answerPoll)
	defer ticker.Stop()
	for {
		select {
		case err := <-failed:
			if err != nil {
				return outline.Node{}, err
			}
		case <-ticker.C:
		case <-ctx.Done():
			return outline.Node{}, ctx.Err()
		}
		var n outline.Node
		err := loop.Do(ctx, func(d *diagram.Diagram) error {
			n, _ = d.Outline().Node(id)
			return nil
		})
		if err != nil {
			return outline.Node{}, err
		}
		if n.State == outline.StateAnswered {
			return n, nil
		}
	}
}

func (c *CLI) saveAsk(ctx context.Context, loop *diagram.Loop, input, output string) error {
	output = saveTarget(input, output)
	saveCtx := context.WithoutCancel(ctx)
	return loop.Do(saveCtx, func(d *diagram.Diagram) error {
		if err := c.writeDocument(saveCtx, output, d); err != nil {
			return err
		}
		printFile(output)
		return nil
	})
}

// resolveNode accepts a node ID or a fuzzy title query.
func resolveNode(o *outline.Outline, query string) (string, error) {
	if o.Has(query) {
		return query, nil
	}
	matches := o.Find(query)
	if len(matches) == 0 {
		return "", mmerrors.New(mmerrors.ErrCodeNodeNotFound, "no node matches %q", query)
	}
	return matches[0], nil
}
