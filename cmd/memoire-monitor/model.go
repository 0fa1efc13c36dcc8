// Command memoire-monitor is a read-only status dashboard: it polls the
// storage layer and the data directory's disk usage on a timer and renders
// recorder/indexer health. Adapted from tui/internal/app/model.go's
// Bubble Tea Model/Update/View shape — this dashboard polls storage instead
// of a daemon socket, so there is no connectCmd/subscribeCmd equivalent.
package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"memoire/internal/metrics"
	"memoire/internal/statusui"
	"memoire/internal/storage"
)

const pollInterval = 2 * time.Second

type snapshot struct {
	ocrStats      storage.OcrStats
	audioStats    storage.AudioStats
	chunks        []storage.ChunkWithFrameCount
	monitors      []storage.MonitorSummary
	diskFreeRatio float64
	err           error
}

type tickMsg struct{}

type snapshotMsg snapshot

type model struct {
	store   *storage.Store
	dataDir string
	last    snapshot
	ready   bool
	width   int
	height  int
}

func newModel(store *storage.Store, dataDir string) model {
	return model{store: store, dataDir: dataDir}
}

func (m model) Init() tea.Cmd {
	return m.poll()
}

func (m model) poll() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		var snap snapshot
		var err error

		snap.ocrStats, err = m.store.GetOcrStats(ctx)
		if err != nil {
			return snapshotMsg(snapshot{err: err})
		}
		snap.audioStats, err = m.store.GetAudioStats(ctx)
		if err != nil {
			return snapshotMsg(snapshot{err: err})
		}
		snap.chunks, err = m.store.GetChunksWithFrameCounts(ctx, 10, 0)
		if err != nil {
			return snapshotMsg(snapshot{err: err})
		}
		snap.monitors, err = m.store.GetMonitorSummaries(ctx)
		if err != nil {
			return snapshotMsg(snapshot{err: err})
		}
		snap.diskFreeRatio, err = metrics.DiskUsage(m.dataDir)
		if err != nil {
			return snapshotMsg(snapshot{err: err})
		}
		return snapshotMsg(snap)
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(time.Time) tea.Msg { return tickMsg{} })
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
		return m, nil

	case snapshotMsg:
		m.last = snapshot(msg)
		m.ready = true
		return m, tickCmd()

	case tickMsg:
		return m, m.poll()
	}
	return m, nil
}

func (m model) View() string {
	if !m.ready {
		return "connecting to storage...\n"
	}

	var b strings.Builder
	b.WriteString(statusui.TitleStyle.Render("memoire monitor"))
	b.WriteString("\n")
	b.WriteString(statusui.DividerStyle.Render(strings.Repeat("-", 40)))
	b.WriteString("\n\n")

	if m.last.err != nil {
		b.WriteString(statusui.ErrorStyle.Render(fmt.Sprintf("poll error: %v", m.last.err)))
		b.WriteString("\n")
	}

	b.WriteString(statusui.PanelTitleStyle.Render("OCR"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  frames: %d   with text: %d   pending: %s   rate: %.2f/s\n",
		m.last.ocrStats.TotalFrames,
		m.last.ocrStats.FramesWithOcr,
		levelText(m.last.ocrStats.PendingFrames),
		m.last.ocrStats.ProcessingRate,
	))
	b.WriteString("\n")

	b.WriteString(statusui.PanelTitleStyle.Render("Audio"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  chunks: %d   transcribed: %d   pending: %s   rate: %.2f/s\n",
		m.last.audioStats.TotalChunks,
		m.last.audioStats.ChunksTranscribed,
		levelText(m.last.audioStats.PendingChunks),
		m.last.audioStats.ProcessingRate,
	))
	b.WriteString("\n")

	b.WriteString(statusui.PanelTitleStyle.Render("Disk"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  %s free on %s\n\n", diskLevelText(m.last.diskFreeRatio), m.dataDir))

	b.WriteString(statusui.PanelTitleStyle.Render("Monitors"))
	b.WriteString("\n")
	if len(m.last.monitors) == 0 {
		b.WriteString(statusui.DimStyle.Render("  no monitors recorded yet"))
		b.WriteString("\n")
	}
	for _, mon := range m.last.monitors {
		latest := "never"
		if mon.LatestCapture != nil {
			latest = humanize.Time(*mon.LatestCapture)
		}
		b.WriteString(fmt.Sprintf("  %-20s chunks=%-6s frames=%-8s latest=%s\n",
			mon.DeviceName, humanize.Comma(mon.TotalChunks), humanize.Comma(mon.TotalFrames), latest))
	}
	b.WriteString("\n")

	b.WriteString(statusui.PanelTitleStyle.Render("Recent chunks"))
	b.WriteString("\n")
	for _, c := range m.last.chunks {
		b.WriteString(fmt.Sprintf("  #%-6d %-20s frames=%-6d created=%s\n",
			c.ID, c.DeviceName, c.FrameCount, humanize.Time(c.CreatedAt)))
	}
	b.WriteString("\n")

	b.WriteString(statusui.FooterKeyStyle.Render("q"))
	b.WriteString(statusui.FooterDescStyle.Render(" quit"))
	b.WriteString("\n")

	return b.String()
}

func levelText(pending int64) string {
	switch {
	case pending == 0:
		return statusui.LevelGreenStyle.Render(fmt.Sprintf("%d", pending))
	case pending < 100:
		return statusui.LevelYellowStyle.Render(fmt.Sprintf("%d", pending))
	default:
		return statusui.LevelRedStyle.Render(fmt.Sprintf("%d", pending))
	}
}

func diskLevelText(ratio float64) string {
	pct := fmt.Sprintf("%.1f%%", ratio*100)
	switch {
	case ratio >= 0.15:
		return statusui.LevelGreenStyle.Render(pct)
	case ratio >= 0.05:
		return statusui.LevelYellowStyle.Render(pct)
	default:
		return statusui.LevelRedStyle.Render(pct)
	}
}
