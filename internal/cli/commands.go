package cli

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/inboxlens/inboxlens/internal/api"
	"github.com/inboxlens/inboxlens/internal/chunker"
	"github.com/inboxlens/inboxlens/internal/pdftext"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about your recent email",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := api.NewClient()
		if !client.Healthy() {
			return fmt.Errorf("server not reachable; start it with 'inboxlens serve'")
		}

		answer, err := client.Ask(strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Println(answer)
		return nil
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Reload the two-day window from your inbox",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := api.NewClient()
		if !client.Healthy() {
			return fmt.Errorf("server not reachable; start it with 'inboxlens serve'")
		}

		loaded, err := client.Refresh()
		if err != nil {
			return err
		}
		fmt.Printf("loaded %d recent emails\n", loaded)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show what is currently indexed",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := api.NewClient()
		if !client.Healthy() {
			return fmt.Errorf("server not reachable; start it with 'inboxlens serve'")
		}

		st, err := client.Status()
		if err != nil {
			return err
		}
		fmt.Println(st.Summary)
		return nil
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop all indexed mail and conversation history",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := api.NewClient()
		if !client.Healthy() {
			return fmt.Errorf("server not reachable; start it with 'inboxlens serve'")
		}

		if err := client.Clear(); err != nil {
			return err
		}
		fmt.Println("cleared")
		return nil
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest [file.pdf ...]",
	Short: "Index PDF documents alongside your mail",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := api.NewClient()
		if !client.Healthy() {
			return fmt.Errorf("server not reachable; start it with 'inboxlens serve'")
		}

		now := float64(time.Now().Unix())
		var docs []chunker.Document
		for _, path := range args {
			text, err := pdftext.Extract(path)
			if err != nil {
				return err
			}
			docs = append(docs, chunker.Document{
				Sender:    "pdf:" + filepath.Base(path),
				Subject:   filepath.Base(path),
				Body:      text,
				Timestamp: now,
			})
		}

		stored, err := client.Ingest(docs)
		if err != nil {
			return err
		}
		fmt.Printf("indexed %d documents\n", stored)
		return nil
	},
}
