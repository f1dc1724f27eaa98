package cmd

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"bookshelf/config"
	"bookshelf/types"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var exitWhenDone bool

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the download view of a running server with a progress bar",
	RunE: func(cmd *cobra.Command, args []string) error {
		wsURL, err := socketURL(config.Load().ServerURL, types.ViewDownloads)
		if err != nil {
			return err
		}

		conn, _, err := websocket.DefaultDialer.DialContext(cmd.Context(), wsURL, nil)
		if err != nil {
			return fmt.Errorf("failed to connect to %s: %w", wsURL, err)
		}
		defer conn.Close()

		go func() {
			<-cmd.Context().Done()
			conn.Close()
		}()

		bar := progressbar.NewOptions(1,
			progressbar.OptionSetWriter(cmd.ErrOrStderr()),
			progressbar.OptionSetDescription("waiting for downloads"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetPredictTime(true),
		)

		for {
			var msg types.SnapshotMessage
			if err := conn.ReadJSON(&msg); err != nil {
				if cmd.Context().Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return nil
				}
				return fmt.Errorf("failed to read snapshot: %w", err)
			}
			if msg.Downloads == nil {
				continue
			}

			summary := summarize(msg.Downloads.Entries)
			if summary.Total > 0 {
				bar.ChangeMax(summary.Total)
				if err := bar.Set(summary.Count); err != nil {
					log.Debug().Err(err).Msg("Failed to update progress bar")
				}
			}
			bar.Describe(summary.String())

			if exitWhenDone && summary.Finished() {
				return bar.Finish()
			}
		}
	},
}

func init() {
	watchCmd.Flags().BoolVar(&exitWhenDone, "exit-when-done", false, "Exit once every download has finished")
}

// watchSummary aggregates a download snapshot for the progress bar
type watchSummary struct {
	Downloads int
	Active    int
	Count     int
	Total     int
}

func summarize(entries []types.DownloadEntry) watchSummary {
	s := watchSummary{Downloads: len(entries)}
	for _, e := range entries {
		if e.DownloadedTotal > 0 {
			s.Count += min(e.DownloadedCount, e.DownloadedTotal)
			s.Total += e.DownloadedTotal
		}
		if e.State == types.DownloadStateDownloading || e.State == types.DownloadStatePending || e.Generating {
			s.Active++
		}
	}
	return s
}

// Finished reports whether there is something to download and all of it is done
func (s watchSummary) Finished() bool {
	return s.Downloads > 0 && s.Active == 0 && s.Total > 0 && s.Count >= s.Total
}

func (s watchSummary) String() string {
	return fmt.Sprintf("%d downloads, %d active", s.Downloads, s.Active)
}

// socketURL turns the server address into the WebSocket URL of view
func socketURL(server string, view types.View) (string, error) {
	u, err := url.Parse(server)
	if err != nil {
		return "", fmt.Errorf("invalid server url %q: %w", server, err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", errors.New("server url must use http, https, ws or wss")
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/api/ws/" + string(view)
	return u.String(), nil
}
