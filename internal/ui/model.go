package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/desertwitch/govfs/internal/queue"
	"github.com/desertwitch/govfs/transfer"
	"github.com/dustin/go-humanize"
)

//nolint:gochecknoglobals
var (
	// titleStyle defines the style for a panel's title.
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	// borderStyle defines the style for a panel's borders.
	borderStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7D56F4"))

	// infoStyle defines the style for a panel's text.
	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA"))

	// helpStyle defines the style for the help panel's text.
	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			Padding(0, 1)
)

// byteProgress is a snapshot of the transfer byte counters.
type byteProgress struct {
	started          bool
	done             bool
	pct              float64
	bytesTransferred uint64
	bytesTotal       uint64
	transferRate     float64
	timeRemaining    time.Duration
}

// ProgressMsg is a [tea.Msg] containing queue and byte progress information.
type ProgressMsg struct {
	t         time.Time
	queueData queue.Progress
	byteData  byteProgress
}

// TeaModel is the principal [tea.Model] for the command-line user interface.
type TeaModel struct {
	width  int
	height int

	cancel context.CancelFunc

	uiHandler *Handler
	transfers *transfer.Handler

	fullWidthWithBorders  int
	splitWidthWithBorders int

	queueData queue.Progress
	byteData  byteProgress

	queueProgress progress.Model
	dataProgress  progress.Model
	logsViewport  viewport.Model
	logs          []string

	ready bool
}

// NewTeaModel returns an initial new [TeaModel].
//
//nolint:mnd
func NewTeaModel(uiHandler *Handler, transfers *transfer.Handler, cancel context.CancelFunc) TeaModel {
	queueProgress := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(80),
	)
	dataProgress := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(80),
	)

	logsViewport := viewport.New(80, 20)

	return TeaModel{
		uiHandler:     uiHandler,
		transfers:     transfers,
		queueProgress: queueProgress,
		dataProgress:  dataProgress,
		queueData:     queue.Progress{},
		byteData:      byteProgress{},
		logsViewport:  logsViewport,
		logs:          make([]string, 0, 100),
		cancel:        cancel,
		ready:         false,
	}
}

// Init initializes the model within a [tea.Program].
func (m TeaModel) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		updateProgress(m.transfers),
	)
}

// updateProgress produces a [tea.Cmd] for later scheduling in a
// [tea.Program]. When executed, a [ProgressMsg] with the transfer handler's
// queue and byte progress is returned.
func updateProgress(transfers *transfer.Handler) tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg { //nolint:mnd
		pct, _, timeRemaining, bytesTransferred, bytesTotal, transferRate := transfers.Stats.GetStats()

		progressMsg := ProgressMsg{
			t:         t,
			queueData: transfers.Queue.Progress(),
			byteData: byteProgress{
				started:          transfers.Stats.IsStarted(),
				done:             transfers.Stats.IsDone(),
				pct:              pct,
				bytesTransferred: bytesTransferred,
				bytesTotal:       bytesTotal,
				transferRate:     transferRate,
				timeRemaining:    timeRemaining,
			},
		}

		return progressMsg
	})
}

// Update is the principal message handling method of the model.
// It sets the internal state of the model, for later rendering.
//
//nolint:mnd,ireturn
func (m TeaModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.cancel()

			return m, tea.Quit
		case "q":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		m.fullWidthWithBorders = m.width - 2
		m.splitWidthWithBorders = (m.width / 2) - 2

		// Progress bars should match the content width.
		m.queueProgress.Width = m.splitWidthWithBorders
		m.dataProgress.Width = m.splitWidthWithBorders

		// We want upper panels to take about 40% of the height.
		upperHeight := m.height * 2 / 5
		lowerHeight := m.height - upperHeight

		// Viewport height: lower section minus borders and title.
		viewportHeight := lowerHeight - 3

		// Set viewport width to full width minus borders.
		m.logsViewport.Width = m.fullWidthWithBorders
		m.logsViewport.Height = viewportHeight

		// Update viewport content with current logs.
		if len(m.logs) > 0 {
			logs := lipgloss.NewStyle().
				Width(m.logsViewport.Width).
				Render(strings.TrimSuffix(strings.Join(m.logs, ""), "\n"))

			m.logsViewport.SetContent(logs)
			m.logsViewport.GotoBottom()
		}

		if !m.ready {
			m.ready = true
			m.uiHandler.Ready.Store(true)
		}

	case ProgressMsg:
		m.queueData = msg.queueData
		m.byteData = msg.byteData

		cmds = append(cmds,
			m.queueProgress.SetPercent(m.queueData.ProgressPct/100),
			m.dataProgress.SetPercent(m.byteData.pct/100),
		)

		// Queue the next update.
		cmds = append(cmds, updateProgress(m.transfers))

	case LogMsg:
		logMsg := string(msg)

		if len(m.logs) >= 100 {
			m.logs = m.logs[1:]
		}

		m.logs = append(m.logs, logMsg)

		logs := lipgloss.NewStyle().
			Width(m.logsViewport.Width).
			Render(strings.TrimSuffix(strings.Join(m.logs, ""), "\n"))

		m.logsViewport.SetContent(logs)
		m.logsViewport.GotoBottom()

	case progress.FrameMsg:
		// Update queue progress.
		updatedQueue, cmd := m.queueProgress.Update(msg)
		if progressModel, ok := updatedQueue.(progress.Model); ok {
			m.queueProgress = progressModel
		}
		cmds = append(cmds, cmd)

		// Update data progress.
		updatedData, cmd := m.dataProgress.Update(msg)
		if progressModel, ok := updatedData.(progress.Model); ok {
			m.dataProgress = progressModel
		}
		cmds = append(cmds, cmd)
	}

	// Handle viewport updates.
	m.logsViewport, cmd = m.logsViewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// View is the principal rendering function of the model.
func (m TeaModel) View() string {
	if !m.ready {
		return "Loading the GUI..."
	}

	var s strings.Builder

	queueView := m.formatQueueView("Transfer Queue", m.queueProgress.View())
	dataView := m.formatDataView("Data", m.dataProgress.View())

	progressSection := lipgloss.JoinHorizontal(
		lipgloss.Top,
		borderStyle.Width(m.splitWidthWithBorders).Render(queueView),
		borderStyle.Width(m.splitWidthWithBorders).Render(dataView),
	)

	logsSection := borderStyle.
		Width(m.fullWidthWithBorders).
		Render(
			lipgloss.JoinVertical(
				lipgloss.Left,
				titleStyle.Width(m.fullWidthWithBorders).Render("Process Information"),
				lipgloss.NewStyle().Width(m.fullWidthWithBorders).Render(m.logsViewport.View()),
			),
		)

	helpSection := helpStyle.
		Width(m.fullWidthWithBorders).
		Render("q: quit gui • ctrl+c: quit program")

	s.WriteString(lipgloss.JoinVertical(
		lipgloss.Left,
		progressSection,
		logsSection,
		helpSection,
	))

	return s.String()
}

// formatQueueView is a helper function for rendering the queue panel.
func (m TeaModel) formatQueueView(title string, progressBar string) string {
	data := m.queueData

	var timeLeft time.Duration
	var timeLeftMin float64

	if !data.ETA.IsZero() {
		timeLeft = time.Until(data.ETA)
		timeLeftMin = timeLeft.Minutes()
	}

	var details string
	if !data.HasFinished {
		details = fmt.Sprintf(
			"Progress: %.2f%% (%d/%d)\n"+
				"Items: InProgress=%d, Success=%d, Skipped=%d\n"+
				"Time: Started=%v, ETA=%v (%.1f%s left)\n"+
				"Speed: %d %s\n",
			data.ProgressPct,
			data.ProcessedItems,
			data.TotalItems,
			data.InProgressItems,
			data.SuccessItems,
			data.SkippedItems,
			data.StartTime.Format("15:04:05"),
			data.ETA.Format("15:04:05"),
			timeLeftMin, "min",
			int(data.TransferSpeed), data.TransferSpeedUnit,
		)
	} else {
		details = fmt.Sprintf(
			"Progress: %.2f%% (%d/%d)\n"+
				"Items: InProgress=%d, Success=%d, Skipped=%d\n"+
				"Time: Started=%v, Finished=%v\n\n",
			data.ProgressPct,
			data.ProcessedItems,
			data.TotalItems,
			data.InProgressItems,
			data.SuccessItems,
			data.SkippedItems,
			data.StartTime.Format("15:04:05"),
			data.FinishTime.Format("15:04:05"),
		)
	}

	content := lipgloss.JoinVertical(
		lipgloss.Left,
		titleStyle.Width(m.splitWidthWithBorders).Render(title),
		"", // Empty line for spacing.
		progressBar,
		"", // Empty line for spacing.
		infoStyle.Width(m.splitWidthWithBorders).Render(details),
	)

	return content
}

// formatDataView is a helper function for rendering the byte panel.
func (m TeaModel) formatDataView(title string, progressBar string) string {
	data := m.byteData

	var details string

	switch {
	case !data.started:
		details = "Waiting for the first transfer to start...\n"
	case data.done:
		details = fmt.Sprintf(
			"Progress: %.2f%% (%s/%s)\n"+
				"Finished.\n",
			data.pct,
			humanize.Bytes(data.bytesTransferred),
			humanize.Bytes(data.bytesTotal),
		)
	default:
		details = fmt.Sprintf(
			"Progress: %.2f%% (%s/%s)\n"+
				"Speed: %s/s (%.1f min left)\n",
			data.pct,
			humanize.Bytes(data.bytesTransferred),
			humanize.Bytes(data.bytesTotal),
			humanize.Bytes(uint64(data.transferRate)),
			data.timeRemaining.Minutes(),
		)
	}

	content := lipgloss.JoinVertical(
		lipgloss.Left,
		titleStyle.Width(m.splitWidthWithBorders).Render(title),
		"", // Empty line for spacing.
		progressBar,
		"", // Empty line for spacing.
		infoStyle.Width(m.splitWidthWithBorders).Render(details),
	)

	return content
}
