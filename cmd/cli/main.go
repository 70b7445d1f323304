package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/yourusername/gdl-bridge/internal/domain"
)

var (
	serverURL   string
	configFile  string
	noAutoStart bool
	rootCmd     = &cobra.Command{
		Use:   "gdl-bridge",
		Short: "gdl-bridge CLI - run gallery-dl jobs and export datasets",
		Long: `A command-line interface for the gdl-bridge server, which runs gallery-dl
download jobs and returns extraction summaries, and for exporting labeled
image datasets to JPEG files.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8686", "Server URL")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (passed to an auto-started server)")
	rootCmd.PersistentFlags().BoolVar(&noAutoStart, "no-auto-start", false, "Don't auto-start server if not running")

	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(exportDatasetCmd)
	rootCmd.AddCommand(configCmd)

	historyCmd.AddCommand(historyStatsCmd)
	configCmd.AddCommand(configInitCmd)
}

// client returns an API client, starting the server first unless --no-auto-start
func client() *apiClient {
	c := newAPIClient(serverURL)
	if !noAutoStart {
		if err := ensureServerRunning(c, configFile); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}
	return c
}

var downloadCmd = &cobra.Command{
	Use:   "download [url]",
	Short: "Run a gallery-dl job and print its extraction summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("path")
		gdlConfig, _ := cmd.Flags().GetString("gallery-dl-config")
		jsonOutput, _ := cmd.Flags().GetBool("json")

		payload := map[string]string{"url": args[0]}
		if path != "" {
			payload["path"] = path
		}
		if gdlConfig != "" {
			payload["config"] = gdlConfig
		}

		var summary json.RawMessage
		if err := client().post("/api/v1/downloads", payload, &summary); err != nil {
			return err
		}

		if jsonOutput {
			fmt.Println(string(summary))
			return nil
		}

		var parsed domain.ExtractionSummary
		if err := json.Unmarshal(summary, &parsed); err != nil {
			return err
		}
		fmt.Printf("Extractor: %s\n", parsed.Extractor)
		fmt.Printf("Files:     %d\n", len(parsed.URLExtractors))
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "PATH\tURL")
		for _, entry := range parsed.URLExtractors {
			fmt.Fprintf(w, "%s\t%s\n", entry.Path, truncate(entry.URL, 60))
		}
		return w.Flush()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show progress of running jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		watch, _ := cmd.Flags().GetBool("watch")
		interval, _ := cmd.Flags().GetDuration("interval")

		c := client()
		if watch {
			return watchStatus(c, interval)
		}

		var status map[string]domain.ProgressState
		if err := c.get("/api/v1/jobs/status", &status); err != nil {
			return err
		}
		printStatus(status)
		return nil
	},
}

// watchStatus prints every snapshot pushed over the status websocket
func watchStatus(c *apiClient, interval time.Duration) error {
	u, err := url.Parse(c.baseURL + "/api/v1/jobs/status/ws")
	if err != nil {
		return err
	}
	u.Scheme = strings.Replace(u.Scheme, "http", "ws", 1)
	u.RawQuery = url.Values{"interval": {interval.String()}}.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect to status stream: %w", err)
	}
	defer conn.Close()

	for {
		var status map[string]domain.ProgressState
		if err := conn.ReadJSON(&status); err != nil {
			return err
		}
		fmt.Printf("--- %s ---\n", time.Now().Format("15:04:05"))
		printStatus(status)
	}
}

func printStatus(status map[string]domain.ProgressState) {
	if len(status) == 0 {
		fmt.Println("No running jobs")
		return
	}

	ids := make([]string, 0, len(status))
	for id := range status {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "JOB\tDOWNLOADED\tTOTAL\tSPEED")
	for _, id := range ids {
		p := status[id]
		fmt.Fprintf(w, "%s\t%s\t%s\t%s/s\n",
			id,
			formatBytes(float64(p.BytesDownloaded)),
			formatBytes(float64(p.BytesTotal)),
			formatBytes(p.BytesPerSecond))
	}
	w.Flush()
}

var summaryCmd = &cobra.Command{
	Use:   "summary [job-id]",
	Short: "Print a recent extraction summary by job ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := client().getRaw("/api/v1/summaries/" + url.PathEscape(args[0]))
		if err != nil {
			return err
		}
		fmt.Println(string(raw))
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List finished and running jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		query := url.Values{"limit": {strconv.Itoa(limit)}}
		if status != "" {
			query.Set("status", status)
		}

		var result struct {
			Jobs []*domain.JobRecord `json:"jobs"`
		}
		if err := client().get("/api/v1/history?"+query.Encode(), &result); err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "RUN\tURL\tEXTRACTOR\tSTATE\tFILES\tCREATED")
		for _, job := range result.Jobs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
				truncate(job.RunID, 8),
				truncate(job.URL, 40),
				job.Extractor,
				job.State,
				job.FileCount,
				job.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		return w.Flush()
	},
}

var historyStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show job statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		var stats domain.JobStats
		if err := client().get("/api/v1/history/stats", &stats); err != nil {
			return err
		}

		fmt.Println("Job Statistics:")
		fmt.Printf("  Total:     %d\n", stats.Total)
		fmt.Printf("  Running:   %d\n", stats.Running)
		fmt.Printf("  Succeeded: %d\n", stats.Succeeded)
		fmt.Printf("  Failed:    %d\n", stats.Failed)
		fmt.Printf("  Media:     %d\n", stats.Media)
		fmt.Printf("  Tags:      %d\n", stats.Tags)
		return nil
	},
}

var logsCmd = &cobra.Command{
	Use:   "logs [category]",
	Short: "View job, error or download logs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		date, _ := cmd.Flags().GetString("date")
		search, _ := cmd.Flags().GetString("search")
		limit, _ := cmd.Flags().GetInt("limit")

		query := url.Values{"limit": {strconv.Itoa(limit)}}
		if date != "" {
			query.Set("date", date)
		}
		path := "/api/v1/logs/" + url.PathEscape(args[0])
		if search != "" {
			path += "/search"
			query.Set("q", search)
		}

		var result struct {
			Entries []struct {
				Timestamp string `json:"timestamp"`
				Level     string `json:"level"`
				Message   string `json:"message"`
			} `json:"entries"`
		}
		if err := client().get(path+"?"+query.Encode(), &result); err != nil {
			return err
		}

		for _, entry := range result.Entries {
			if entry.Timestamp == "" {
				fmt.Println(entry.Message)
				continue
			}
			fmt.Printf("%s %-5s %s\n", entry.Timestamp, strings.ToUpper(entry.Level), entry.Message)
		}
		return nil
	},
}

func init() {
	downloadCmd.Flags().StringP("path", "p", "", "Absolute directory to download into (default: server output_dir)")
	downloadCmd.Flags().String("gallery-dl-config", "", "gallery-dl config file for this job")
	downloadCmd.Flags().BoolP("json", "j", false, "Print the summary as JSON")
	statusCmd.Flags().BoolP("watch", "w", false, "Stream status updates")
	statusCmd.Flags().Duration("interval", 500*time.Millisecond, "Update interval with --watch")
	historyCmd.Flags().StringP("status", "s", "", "Filter by state (running, succeeded, failed)")
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of jobs")
	logsCmd.Flags().StringP("date", "d", "", "Log date (YYYY-MM-DD, default today)")
	logsCmd.Flags().StringP("search", "q", "", "Only show entries containing this text")
	logsCmd.Flags().IntP("limit", "n", 100, "Maximum number of entries")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
