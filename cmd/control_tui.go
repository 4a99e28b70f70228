// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Thermoquad/tclstat/pkg/tclac"
)

//////////////////////////////////////////////////////////////
// Constants
//////////////////////////////////////////////////////////////

const (
	submitTimeout  = 3 * time.Second
	staleAfter     = 15 * time.Second // three missed polls
	settingsWidth  = 30
	eventLogHeight = 8
)

// Focus states
const (
	focusSettings = iota
	focusTargetInput
)

//////////////////////////////////////////////////////////////
// Types
//////////////////////////////////////////////////////////////

// settingItem renders a setting with its current value
type settingItem struct {
	setting
	value string
}

// Implement list.Item interface
func (i settingItem) Title() string       { return i.label }
func (i settingItem) Description() string { return i.value }
func (i settingItem) FilterValue() string { return i.key }

// controlRunner is the slice of daemon.Runner the TUI needs
type controlRunner interface {
	Submit(ctx context.Context, req tclac.ControlRequest) (tclac.DeviceState, error)
}

// controlModel is the Bubble Tea model for the control TUI
type controlModel struct {
	runner   controlRunner
	connInfo string

	settings     []setting
	settingsList list.Model
	targetInput  textinput.Model
	focusedField int

	state     tclac.DeviceState
	lastFrame time.Time
	lastSet   []byte

	// Monitoring (same layout as the error detection TUI)
	stats         *tclac.Statistics
	errorLog      []errorLogEntry
	maxLogEntries int

	width        int
	height       int
	synchronized bool
	quitting     bool
	connected    bool
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type controlTickMsg time.Time

type controlEventMsg struct {
	event            tclac.Event
	validationErrors []tclac.ValidationError
}

type controlStateMsg struct {
	state tclac.DeviceState
}

type linkMsg struct {
	connected bool
	err       error
}

type submitResultMsg struct {
	what  string
	state tclac.DeviceState
	err   error
}

//////////////////////////////////////////////////////////////
// Model Initialization
//////////////////////////////////////////////////////////////

func initialControlModel(runner controlRunner, connInfo string, initial tclac.DeviceState) controlModel {
	ti := textinput.New()
	ti.Placeholder = "24"
	ti.CharLimit = 4
	ti.Width = 6

	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true
	delegate.SetHeight(2)
	settingsList := list.New([]list.Item{}, delegate, settingsWidth, 20)
	settingsList.Title = "Settings"
	settingsList.SetShowStatusBar(false)
	settingsList.SetShowHelp(false)
	settingsList.SetFilteringEnabled(false)

	m := controlModel{
		runner:        runner,
		connInfo:      connInfo,
		settings:      controlSettings(),
		settingsList:  settingsList,
		targetInput:   ti,
		focusedField:  focusSettings,
		state:         initial,
		stats:         tclac.NewStatistics(),
		errorLog:      make([]errorLogEntry, 0),
		maxLogEntries: 100,
		width:         80,
		height:        24,
	}
	m.updateSettingsList()
	m.addLogEntry("Connecting...", false)
	return m
}

//////////////////////////////////////////////////////////////
// Bubble Tea Interface
//////////////////////////////////////////////////////////////

func (m controlModel) Init() tea.Cmd {
	return controlTickCmd()
}

func controlTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return controlTickMsg(t)
	})
}

func (m controlModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.MouseMsg:
		if msg.Action == tea.MouseActionRelease && msg.Button == tea.MouseButtonLeft {
			m.settingsList, _ = m.settingsList.Update(msg)
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateListSize()

	case controlTickMsg:
		m.stats.CalculateRates()
		return m, controlTickCmd()

	case controlEventMsg:
		m.processEvent(msg)

	case controlStateMsg:
		m.state = msg.state
		m.updateSettingsList()

	case linkMsg:
		m.connected = msg.connected
		if msg.connected {
			m.addLogEntry("Connected: "+m.connInfo, false)
		} else {
			m.synchronized = false
			m.addLogEntry(fmt.Sprintf("Connection lost (%v) - reconnecting...", msg.err), true)
		}

	case submitResultMsg:
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("Failed to send %s: %v", msg.what, msg.err), true)
			return m, nil
		}
		m.stats.AddTx()
		m.state = msg.state
		m.lastSet = encodeFor(msg.state)
		m.updateSettingsList()
		m.addLogEntry("Sent "+msg.what, false)
	}

	return m, nil
}

func (m controlModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.focusedField == focusTargetInput {
		switch msg.String() {
		case "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "esc":
			m.blurTarget()
			return m, nil
		case "enter":
			value := strings.TrimSpace(m.targetInput.Value())
			m.blurTarget()
			if value == "" {
				return m, nil
			}
			req, err := parseTarget(value)
			if err != nil {
				m.addLogEntry(err.Error(), true)
				return m, nil
			}
			return m, m.submit("target_temperature="+value, req)
		}
		var cmd tea.Cmd
		m.targetInput, cmd = m.targetInput.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "left", "h":
		return m, m.cycleSelected(-1)

	case "right", "l", " ":
		return m, m.cycleSelected(1)

	case "+", "=":
		return m, m.nudgeTarget(tclac.TargetTempStep)

	case "-":
		return m, m.nudgeTarget(-tclac.TargetTempStep)

	case "o":
		return m, m.submit("mode=off", tclac.ControlRequest{Mode: tclac.Ptr(tclac.ModeOff)})

	case "enter":
		if s := m.selectedSetting(); s != nil && s.key == "target_temperature" {
			m.focusedField = focusTargetInput
			m.targetInput.SetValue("")
			m.targetInput.Focus()
			return m, textinput.Blink
		}
		return m, m.cycleSelected(1)
	}

	var cmd tea.Cmd
	m.settingsList, cmd = m.settingsList.Update(msg)
	return m, cmd
}

func (m controlModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var s strings.Builder

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	statsLabelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	statsValueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	focusedBoxStyle := boxStyle.
		BorderForeground(lipgloss.Color("12"))

	// Header
	s.WriteString(titleStyle.Render("TCLSTAT CONTROL"))
	s.WriteString(" ")
	connStatus := m.connInfo
	if !m.connected {
		connStatus = warningStyle.Render("CONNECTING...")
	}
	s.WriteString(headerStyle.Render(fmt.Sprintf("| %s | q=quit ←/→=change Enter=edit +/-=target o=off", connStatus)))
	s.WriteString("\n\n")

	// Layout: left panel (settings) | right panel (state)
	rightWidth := m.width - settingsWidth - 6
	listStyle := boxStyle.Width(settingsWidth)
	if m.focusedField == focusSettings {
		listStyle = focusedBoxStyle.Width(settingsWidth)
	}
	settingsPanel := listStyle.Render(m.settingsList.View())
	statePanel := boxStyle.Width(rightWidth).Render(m.renderStatePanel(statsLabelStyle, statsValueStyle, headerStyle, warningStyle))

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, settingsPanel, " ", statePanel))
	s.WriteString("\n\n")

	s.WriteString(m.renderStatisticsBar(statsLabelStyle, statsValueStyle, errorStyle, boxStyle))
	s.WriteString("\n\n")

	s.WriteString(m.renderEventLog(statsLabelStyle, warningStyle, boxStyle))

	return s.String()
}

//////////////////////////////////////////////////////////////
// View Helpers
//////////////////////////////////////////////////////////////

func (m controlModel) renderStatePanel(statsLabelStyle, statsValueStyle, headerStyle, warningStyle lipgloss.Style) string {
	var s strings.Builder

	s.WriteString(statsLabelStyle.Render("STATE"))
	switch {
	case m.lastFrame.IsZero():
		s.WriteString(warningStyle.Render("  waiting for the unit..."))
	case time.Since(m.lastFrame) > staleAfter:
		s.WriteString(warningStyle.Render("  stale, last heard " + formatAge(time.Since(m.lastFrame))))
	default:
		s.WriteString(headerStyle.Render("  " + formatAge(time.Since(m.lastFrame))))
	}
	s.WriteString("\n")
	s.WriteString(statsValueStyle.Render(strings.TrimSuffix(tclac.FormatState(m.state), "\n")))
	s.WriteString("\n\n")

	if m.focusedField == focusTargetInput {
		s.WriteString(statsLabelStyle.Render("New target °C: "))
		s.WriteString(m.targetInput.View())
		s.WriteString(headerStyle.Render("  (Enter=send Esc=cancel)"))
		s.WriteString("\n\n")
	}

	s.WriteString(statsLabelStyle.Render("LAST SENT"))
	s.WriteString("\n")
	if m.lastSet == nil {
		s.WriteString(headerStyle.Render("nothing sent yet"))
	} else {
		s.WriteString(headerStyle.Render(strings.TrimSuffix(tclac.FormatSetFrame(m.lastSet), "\n")))
	}
	return s.String()
}

func (m controlModel) renderStatisticsBar(statsLabelStyle, statsValueStyle, errorStyle, boxStyle lipgloss.Style) string {
	m.stats.CalculateRates()
	var validPercent, errorPercent float64
	if m.stats.TotalFrames > 0 {
		validPercent = float64(m.stats.ValidFrames) * 100.0 / float64(m.stats.TotalFrames)
		errorPercent = float64(m.stats.Errors()) * 100.0 / float64(m.stats.TotalFrames)
	}

	errors := statsValueStyle.Render("0.0%")
	if errorPercent > 0 {
		errors = errorStyle.Render(fmt.Sprintf("%.1f%%", errorPercent))
	}
	content := fmt.Sprintf("%s %s  %s %s  %s %s  %s %s  %s %s",
		statsLabelStyle.Render("Total:"), statsValueStyle.Render(fmt.Sprintf("%d", m.stats.TotalFrames)),
		statsLabelStyle.Render("Valid:"), statsValueStyle.Render(fmt.Sprintf("%.1f%%", validPercent)),
		statsLabelStyle.Render("Errors:"), errors,
		statsLabelStyle.Render("Sent:"), statsValueStyle.Render(fmt.Sprintf("%d", m.stats.TxFrames)),
		statsLabelStyle.Render("Rate:"), statsValueStyle.Render(fmt.Sprintf("%.2f frames/s", m.stats.FrameRate)),
	)

	return boxStyle.Width(m.width - 4).Render(content)
}

func (m controlModel) renderEventLog(statsLabelStyle, warningStyle, boxStyle lipgloss.Style) string {
	var s strings.Builder
	s.WriteString(statsLabelStyle.Render("EVENTS"))
	s.WriteString("\n")

	headerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyleLocal := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)

	startIdx := len(m.errorLog) - eventLogHeight
	if startIdx < 0 {
		startIdx = 0
	}

	if len(m.errorLog) == 0 {
		s.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.errorLog); i++ {
			entry := m.errorLog[i]
			timestamp := entry.timestamp.Format("15:04:05.000")
			icon := "i"
			style := warningStyle
			if entry.isError {
				icon = "x"
				style = errorStyleLocal
			}
			s.WriteString(fmt.Sprintf("%s %s %s\n",
				headerStyle.Render(timestamp),
				style.Render(icon),
				entry.message))
		}
	}

	return boxStyle.Width(m.width - 4).Render(s.String())
}

//////////////////////////////////////////////////////////////
// Data Processing
//////////////////////////////////////////////////////////////

func (m *controlModel) processEvent(msg controlEventMsg) {
	m.stats.Update(msg.event, msg.validationErrors)

	if msg.event.Kind == tclac.EventFrame {
		m.lastFrame = msg.event.Frame.Timestamp()
		if !m.synchronized {
			m.synchronized = true
			m.addLogEntry("Synchronized", false)
		}
	}

	name := tclac.FormatCommand(msg.event.Frame.Command(), msg.event.FrameKind)
	for _, err := range msg.validationErrors {
		m.addLogEntry(fmt.Sprintf("%s: %s", name, err.Message), true)
	}
}

//////////////////////////////////////////////////////////////
// Commands
//////////////////////////////////////////////////////////////

// submit hands req to the runner off the UI goroutine
func (m *controlModel) submit(what string, req tclac.ControlRequest) tea.Cmd {
	if !m.connected {
		m.addLogEntry("Cannot send command: not connected", true)
		return nil
	}

	runner := m.runner
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
		defer cancel()
		state, err := runner.Submit(ctx, req)
		return submitResultMsg{what: what, state: state, err: err}
	}
}

func (m *controlModel) cycleSelected(delta int) tea.Cmd {
	s := m.selectedSetting()
	if s == nil {
		return nil
	}
	value := s.step(m.state, delta)
	req, err := s.request(value)
	if err != nil {
		m.addLogEntry(err.Error(), true)
		return nil
	}
	return m.submit(s.key+"="+value, req)
}

func (m *controlModel) nudgeTarget(delta float64) tea.Cmd {
	target := tclac.ClampTarget(m.state.TargetTemperature + delta)
	if target == m.state.TargetTemperature {
		return nil
	}
	return m.submit(fmt.Sprintf("target_temperature=%.0f", target),
		tclac.ControlRequest{TargetTemperature: &target})
}

//////////////////////////////////////////////////////////////
// Helpers
//////////////////////////////////////////////////////////////

// encodeFor returns the frame the engine sends for state
func encodeFor(state tclac.DeviceState) []byte {
	if state.Mode == tclac.ModeOff {
		return tclac.EncodePowerOff()
	}
	return tclac.Encode(state)
}

func (m *controlModel) addLogEntry(message string, isError bool) {
	entry := errorLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	}
	m.errorLog = append(m.errorLog, entry)

	if len(m.errorLog) > m.maxLogEntries {
		m.errorLog = m.errorLog[len(m.errorLog)-m.maxLogEntries:]
	}
}

func (m *controlModel) selectedSetting() *setting {
	idx := m.settingsList.Index()
	if idx < 0 || idx >= len(m.settings) {
		return nil
	}
	return &m.settings[idx]
}

func (m *controlModel) blurTarget() {
	m.targetInput.Blur()
	m.focusedField = focusSettings
}

func (m *controlModel) updateSettingsList() {
	items := make([]list.Item, len(m.settings))
	for i, s := range m.settings {
		items[i] = settingItem{setting: s, value: s.current(m.state)}
	}
	m.settingsList.SetItems(items)
}

func (m *controlModel) updateListSize() {
	listHeight := m.height - eventLogHeight - 12
	if listHeight < 6 {
		listHeight = 6
	}
	m.settingsList.SetSize(settingsWidth-2, listHeight)
}
