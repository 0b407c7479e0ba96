package agent

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/Thejas775/Browser-Agent/internal/llm"
)

var ErrNoTarget = errors.New("action has no target")

func (r *runner) executeAction(ctx context.Context, action llm.Action) error {
	switch action.Type {
	case llm.ActionScroll:
		return r.drv.Scroll(ctx)

	case llm.ActionNavigate:
		if strings.TrimSpace(action.URL) == "" {
			return fmt.Errorf("navigate: empty url")
		}
		return r.drv.Navigate(ctx, action.URL)

	case llm.ActionClick:
		if action.TargetID == 0 {
			return fmt.Errorf("%w: %s", ErrNoTarget, action.Type)
		}
		return r.drv.Click(ctx, action.TargetID)

	case llm.ActionTypeInput:
		if action.TargetID == 0 {
			return fmt.Errorf("%w: %s", ErrNoTarget, action.Type)
		}
		return r.drv.Type(ctx, action.TargetID, action.Text, action.Submit)

	case llm.ActionFinish:
		return nil

	default:
		return fmt.Errorf("unknown action type: %s", action.Type)
	}
}

// ConfirmOnTTY asks on the controlling terminal. Without a TTY the action is declined.
func ConfirmOnTTY(action llm.Action) bool {
	fmt.Printf("SECURITY LAYER: model suggests a DESTRUCTIVE action (payment, deletion, etc.).\n")
	fmt.Printf("   Planned action: %s [%d] %q\n", action.Type, action.TargetID, action.Text)
	fmt.Print("   Allow this action? (y/n): ")

	tty, err := os.Open("/dev/tty")
	if err != nil {
		fmt.Println("\nDestructive action cancelled (no interactive TTY).")
		return false
	}
	defer tty.Close()

	return readConfirmation(bufio.NewReader(tty))
}

func readConfirmation(reader *bufio.Reader) bool {
	for {
		input, err := reader.ReadString('\n')
		answer := strings.ToLower(strings.TrimSpace(input))

		switch answer {
		case "y", "yes":
			return true
		case "n", "no", "":
			return false
		}
		if err != nil {
			return false
		}
		fmt.Print("   Please answer 'y' or 'n': ")
	}
}
