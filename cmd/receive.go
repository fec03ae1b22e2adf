package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/BioHazard786/sdprelay/internal/peer"
	"github.com/BioHazard786/sdprelay/internal/signaling"
	"github.com/BioHazard786/sdprelay/internal/ui"
)

var (
	receiveFlags peerFlags
	flagAck      string
)

var receiveCmd = &cobra.Command{
	Use:     "receive <room-id>",
	Aliases: []string{"r"},
	Short:   "Join a room and answer its offer",
	Long: `Join a room created by "sdprelay send", answer its offer and print the
message that arrives over the data channel.

Examples:
  sdprelay receive 3f9c2a1b
  sdprelay receive --ack "pong" 3f9c2a1b`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := strings.TrimSpace(args[0])
		if id == "" {
			return fmt.Errorf("room id must not be empty")
		}
		return receiveMessage(cmd.Context(), signaling.RoomID(id))
	},
}

func receiveMessage(ctx context.Context, id signaling.RoomID) error {
	cfg, log, err := receiveFlags.LoadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	sp := ui.NewConnectionSpinner(fmt.Sprintf("Joining room %s...", id))
	sp.Start()
	defer sp.Stop()

	receiver := peer.NewReceiver(cfg, log)
	receiver.AckText = flagAck
	receiver.OnConnecting = func() {
		sp.UpdateMessage("Answer sent, connecting to sender...")
	}

	res, err := receiver.Run(ctx, id)
	if err != nil {
		sp.Stop()
		return err
	}
	sp.Success(fmt.Sprintf("Connected to room %s", res.RoomID))

	fmt.Printf("%s %s\n", ui.IconMessage, ui.BoldStyle.Render(res.Greeting))
	fmt.Println()
	ui.RenderSessionSummary(ui.SessionSummary{
		Role:     "receiver",
		RoomID:   string(res.RoomID),
		Sent:     receiver.AckText,
		Received: res.Greeting,
	})
	return nil
}

func init() {
	rootCmd.AddCommand(receiveCmd)

	receiveFlags.register(receiveCmd)
	receiveCmd.Flags().StringVar(&flagAck, "ack", peer.DefaultAckText, "Reply sent back to the sender")
}
