package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/taskpond/realtime/bus"
	"github.com/taskpond/realtime/codec"
	"github.com/taskpond/realtime/config"
	"github.com/taskpond/realtime/conn"
	"github.com/taskpond/realtime/identity"
	"github.com/taskpond/realtime/logger"
	"github.com/taskpond/realtime/sched"
	"github.com/taskpond/realtime/transport"
	"github.com/taskpond/realtime/updates"
)

var (
	watchHost   string
	watchPort   int
	watchSecure bool
	watchToken  string
	watchUser   string
	watchJobs   []string
	watchLevel  string
)

var (
	tagStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	bodyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// watchCmd tails the live update stream and prints every event.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Subscribe to live marketplace updates",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromEnv()
		if watchHost != "" {
			cfg.Host = watchHost
		}
		if watchPort != 0 {
			cfg.Port = watchPort
		}
		if watchSecure {
			cfg.Env = "production"
		}
		if watchLevel != "" {
			cfg.LogLevel = watchLevel
		}

		userID := watchUser
		if userID == "" && watchToken != "" {
			id, err := identity.FromToken(watchToken)
			if err != nil {
				return fmt.Errorf("resolve identity from token: %w", err)
			}
			userID = id
		}
		if userID == "" {
			return fmt.Errorf("either --user or --token is required")
		}

		log := logger.NewLogger("watch", cfg.LogLevel)
		b := bus.New()
		mgr := conn.NewManager(cfg, transport.NewWSDialer(log), b, sched.Wall(), log)

		u := updates.New(mgr, b, updates.Options{
			Identity: identity.Static(userID),
			Logger:   log,
		})
		defer u.Close()
		defer mgr.Disconnect()

		b.Subscribe(conn.EventConnected, func(any) {
			fmt.Println(okStyle.Render("connected"), bodyStyle.Render(cfg.WSAddress()))
		})
		b.Subscribe(conn.EventDisconnected, func(any) {
			fmt.Println(errStyle.Render("disconnected: retries exhausted"))
		})
		for _, name := range []string{
			conn.EventNewMessage,
			conn.EventJobUpdate,
			conn.EventPaymentUpdate,
			conn.EventEscrowReleased,
			conn.EventTransactionUpdate,
		} {
			b.Subscribe(name, printEvent(name))
		}

		for _, jobID := range watchJobs {
			u.OnJobUpdates(jobID, func(any) {})
		}
		u.OnPaymentUpdates(userID, func(any) {})

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop
		return nil
	},
}

func printEvent(name string) bus.Handler {
	return func(payload any) {
		body := ""
		switch v := payload.(type) {
		case *codec.Message:
			if data, err := v.Encode(); err == nil {
				body = string(data)
			}
		case map[string]any:
			body = string(codec.MustMarshal(v))
		default:
			body = fmt.Sprintf("%v", payload)
		}
		fmt.Println(tagStyle.Render(name), bodyStyle.Render(body))
	}
}

func init() {
	watchCmd.Flags().StringVar(&watchHost, "host", "", "server host")
	watchCmd.Flags().IntVar(&watchPort, "port", 0, "server port (non-secure mode)")
	watchCmd.Flags().BoolVar(&watchSecure, "secure", false, "use the secure public endpoint")
	watchCmd.Flags().StringVar(&watchToken, "token", "", "auth token to derive the user id from")
	watchCmd.Flags().StringVar(&watchUser, "user", "", "user id to authenticate as")
	watchCmd.Flags().StringSliceVar(&watchJobs, "job", nil, "job id to follow (repeatable)")
	watchCmd.Flags().StringVar(&watchLevel, "log-level", "", "log level override")

	rootCmd.AddCommand(watchCmd)
}
