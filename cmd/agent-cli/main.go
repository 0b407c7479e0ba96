package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Thejas775/Browser-Agent/internal/agent"
	"github.com/Thejas775/Browser-Agent/internal/config"
	"github.com/Thejas775/Browser-Agent/internal/control"
	"github.com/Thejas775/Browser-Agent/internal/logging"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath string
		startURL   string
		maxSteps   int
		maxActions int
	)

	cmd := &cobra.Command{
		Use:           "agent-cli [task]",
		Short:         "Run one browser automation task from the terminal",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if startURL != "" {
				cfg.Agent.StartURL = startURL
			}
			logger, err := logging.New(cfg.Log)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			var task string
			if len(args) == 1 {
				task = strings.TrimSpace(args[0])
			} else {
				fmt.Print("Describe the task for the agent (e.g. 'find the login button and click it'):\n> ")
				raw, _ := bufio.NewReader(os.Stdin).ReadString('\n')
				task = strings.TrimSpace(raw)
			}
			if task == "" {
				return control.ErrEmptyTask
			}

			factory := control.NewFactory(cfg, logger, control.WithConfirm(agent.ConfirmOnTTY))
			ag, err := factory.NewAgent(task)
			if err != nil {
				return err
			}
			ag.SetMaxActionsPerStep(control.ClampActions(maxActions))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			hist, err := ag.Run(ctx, control.ClampSteps(maxSteps))
			printHistory(hist)
			switch {
			case err == nil:
				logger.Info("agent finished without errors")
			case errors.Is(err, agent.ErrInterrupted):
				logger.Warn("agent interrupted")
			default:
				logger.Error("agent finished with an error", zap.Error(err))
			}

			return err
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to config.yaml")
	cmd.Flags().StringVar(&startURL, "url", "", "Start URL (overrides agent.start_url)")
	cmd.Flags().IntVar(&maxSteps, "max-steps", control.DefaultSteps, "Maximum agent steps (1-100)")
	cmd.Flags().IntVar(&maxActions, "max-actions", control.DefaultActionsPerStep, "Maximum actions per step (1-10)")
	return cmd
}

func printHistory(h *agent.History) {
	if h == nil {
		return
	}
	fmt.Println()
	fmt.Printf("Task:     %s\n", h.Task)
	fmt.Printf("Result:   %s\n", h.ExitReason.Humanize())
	fmt.Printf("Steps:    %d (%d actions)\n", len(h.Steps), h.ActionCount())
	fmt.Printf("Duration: %s\n", h.Duration.Round(time.Millisecond))
	if h.FinalURL != "" {
		fmt.Printf("Final URL: %s\n", h.FinalURL)
	}
	if h.Summary != "" {
		fmt.Printf("\n%s\n", h.Summary)
	}
}
