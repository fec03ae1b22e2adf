package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BioHazard786/sdprelay/internal/config"
	"github.com/BioHazard786/sdprelay/internal/peer"
	"github.com/BioHazard786/sdprelay/internal/signaling"
	"github.com/BioHazard786/sdprelay/internal/ui"
)

const defaultGreeting = "hello from sdprelay"

var (
	sendFlags   peerFlags
	flagMessage string
)

var sendCmd = &cobra.Command{
	Use:     "send",
	Aliases: []string{"s"},
	Short:   "Open a room and wait for a receiver",
	Long: `Create a room on the relay, publish an offer and wait for a receiver to
join. Once the data channel opens the message is sent and the command exits
when the receiver acknowledges it.

Examples:
  sdprelay send
  sdprelay send --message "ping"
  sdprelay send --server wss://relay.example/ws`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendMessage(cmd.Context(), flagMessage)
	},
}

func sendMessage(ctx context.Context, text string) error {
	cfg, log, err := sendFlags.LoadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	stopSpinner := ui.RunConnectionSpinner("Connecting to relay...")
	defer stopSpinner()

	var waiting *ui.SimpleSpinner
	sender := peer.NewSender(cfg, log)
	sender.OnRoomCreated = func(id signaling.RoomID) {
		stopSpinner()
		fmt.Println()
		ui.RenderRoomInfo(string(id), joinServer(cfg))
		fmt.Println()
		waiting = ui.NewWaitingSpinner("Waiting for receiver to join...")
		waiting.Start()
	}
	sender.OnConnecting = func() {
		if waiting != nil {
			waiting.UpdateMessage("Receiver joined, connecting...")
		}
	}

	res, err := sender.Run(ctx, text)
	if waiting != nil {
		waiting.Stop()
	}
	if err != nil {
		return err
	}

	ui.PrintSuccessf("Receiver replied %q", res.Reply)
	fmt.Println()
	ui.RenderSessionSummary(ui.SessionSummary{
		Role:     "sender",
		RoomID:   string(res.RoomID),
		Sent:     text,
		Received: res.Reply,
		Duration: res.RTT,
	})
	return nil
}

// joinServer is the --server value a receiver needs, empty for the default relay.
func joinServer(cfg *config.Peer) string {
	if cfg.ServerURL == config.DefaultServerURL {
		return ""
	}
	return cfg.ServerURL
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendFlags.register(sendCmd)
	sendCmd.Flags().StringVarP(&flagMessage, "message", "m", defaultGreeting, "Message to send over the data channel")
}
