package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"iconch/audio"
	"iconch/conch"
	"iconch/hotkey"
	"iconch/log"
	"iconch/shell"
)

// TUI message types
type LevelMsg struct{ Level float64 }
type ClassMsg struct{ Class conch.Classification }
type RunningMsg struct{ Running bool }
type DeviceLineMsg struct{ Text string } // Microphone device name
type deviceChosenMsg struct {
	device *audio.DeviceInfo
	err    error
}
type tickMsg time.Time

type tuiModel struct {
	monitor *conch.Monitor
	ctx     audio.Context

	running       bool
	class         conch.Classification
	level         float64 // last level in dB, 0 before the first tick
	swell         float64 // smoothed shell.Swell of level
	frame         int
	width, height int
	deviceLine    string
}

// Pre-computed pixel styles, one set per palette
type pixelStyles struct {
	fg [shell.NumPixels]lipgloss.Style
	bg [shell.NumPixels][shell.NumPixels]lipgloss.Style
}

var paletteStyles = map[shell.Palette]*pixelStyles{}

func init() {
	for _, c := range []conch.Classification{conch.Stopped, conch.Bad, conch.Good} {
		p := shell.PaletteFor(c, true)
		if _, ok := paletteStyles[p]; ok {
			continue
		}
		s := &pixelStyles{}
		for i, fg := range p {
			if fg == "" {
				continue
			}
			s.fg[i] = lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
			for j, bg := range p {
				if bg != "" {
					s.bg[i][j] = lipgloss.NewStyle().Foreground(lipgloss.Color(fg)).Background(lipgloss.Color(bg))
				}
			}
		}
		paletteStyles[p] = s
	}
}

// tuiSink forwards monitor events into the Bubble Tea program.
type tuiSink struct {
	p *tea.Program
}

func (s *tuiSink) Running(on bool)                    { s.p.Send(RunningMsg{Running: on}) }
func (s *tuiSink) Level(db float64)                   { s.p.Send(LevelMsg{Level: db}) }
func (s *tuiSink) Classified(c conch.Classification) { s.p.Send(ClassMsg{Class: c}) }
func (s *tuiSink) DeviceLine(text string)             { s.p.Send(DeviceLineMsg{Text: text}) }

func NewTUIProgram(monitor *conch.Monitor, ctx audio.Context) *tea.Program {
	m := tuiModel{monitor: monitor, ctx: ctx}
	return tea.NewProgram(m, tea.WithAltScreen())
}

func tuiTick() tea.Cmd {
	return tea.Tick(60*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) Init() tea.Cmd {
	return tuiTick()
}

// toggle runs off the event loop: the monitor reports back through Send.
func (m tuiModel) toggle() tea.Cmd {
	return func() tea.Msg {
		m.monitor.Toggle()
		return nil
	}
}

func (m tuiModel) stop() tea.Cmd {
	return func() tea.Msg {
		m.monitor.Stop()
		return nil
	}
}

// devicePicker runs the raw-mode microphone picker while Bubble Tea has
// released the terminal.
type devicePicker struct {
	ctx    audio.Context
	chosen *audio.DeviceInfo
}

func (d *devicePicker) Run() error {
	dev, err := audio.SelectDevice(d.ctx)
	d.chosen = dev
	return err
}

func (d *devicePicker) SetStdin(io.Reader)  {}
func (d *devicePicker) SetStdout(io.Writer) {}
func (d *devicePicker) SetStderr(io.Writer) {}

func (m tuiModel) pickDevice() tea.Cmd {
	picker := &devicePicker{ctx: m.ctx}
	return tea.Exec(picker, func(err error) tea.Msg {
		return deviceChosenMsg{device: picker.chosen, err: err}
	})
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case " ", "enter":
			return m, m.toggle()
		case "ctrl+z":
			// conching never outlives the terminal it was started from
			return m, tea.Sequence(m.stop(), tea.Suspend)
		case "ctrl+g":
			if m.ctx != nil {
				return m, m.pickDevice()
			}
		}

	case deviceChosenMsg:
		if msg.err != nil {
			log.Warnf("device selection failed: %v", msg.err)
			return m, nil
		}
		if msg.device != nil {
			log.Info("device_switch: " + msg.device.Name)
			m.deviceLine = deviceLineText(msg.device)
			monitor, dev := m.monitor, msg.device
			return m, func() tea.Msg {
				monitor.SetDevice(dev)
				return nil
			}
		}

	case tickMsg:
		m.frame++
		if !m.running {
			m.swell *= 0.9
		}
		return m, tuiTick()

	case RunningMsg:
		m.running = msg.Running
		if !m.running {
			m.level = 0
			m.class = conch.Stopped
		}

	case LevelMsg:
		if m.running {
			m.level = msg.Level
			target := shell.Swell(msg.Level)
			if target > m.swell {
				m.swell = m.swell*0.2 + target*0.8
			} else {
				m.swell = m.swell*0.7 + target*0.3
			}
		}

	case ClassMsg:
		m.class = msg.Class

	case DeviceLineMsg:
		m.deviceLine = msg.Text
	}
	return m, nil
}

func powerLabel(level float64) string {
	return fmt.Sprintf("power: %3.2f dB", level)
}

func toggleLabel(running bool) string {
	if running {
		return "stop"
	}
	return "blow"
}

func classLabel(c conch.Classification) string {
	switch c {
	case conch.Good:
		return "good blow"
	case conch.Bad:
		return "weak blow"
	}
	return "silence"
}

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	art := renderShell(m.frame, m.swell, shell.PaletteFor(m.class, m.running))

	var infoLines []string

	// Status line
	if m.running {
		status := lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true).
			Render("● CONCHING")
		infoLines = append(infoLines, status)
	} else {
		status := lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Render("○ STANDBY")
		infoLines = append(infoLines, status)
	}

	if m.running {
		power := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
		line := powerLabel(m.level)
		if m.level == 0 {
			line = "power: --"
		}
		infoLines = append(infoLines, power.Render(line+"  "+classLabel(m.class)))
	}

	if m.deviceLine != "" {
		deviceLine := lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Render(m.deviceLine)
		infoLines = append(infoLines, deviceLine)
	}

	infoLines = append(infoLines, "")

	button := lipgloss.NewStyle().
		Foreground(lipgloss.Color("230")).
		Background(lipgloss.Color("95")).
		Padding(0, 2).
		Render(toggleLabel(m.running))
	infoLines = append(infoLines, button, "")

	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	boldStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Bold(true)
	infoLines = append(infoLines,
		boldStyle.Render("space")+helpStyle.Render(" "+toggleLabel(m.running))+
			helpStyle.Render("  ")+boldStyle.Render("ctrl+g")+helpStyle.Render(" mic")+
			helpStyle.Render("  ")+boldStyle.Render("q")+helpStyle.Render(" quit"),
		boldStyle.Render(hotkey.Label)+helpStyle.Render(" toggles from anywhere"),
		helpStyle.Render("iconch "+version),
	)

	info := lipgloss.NewStyle().Width(shell.Width).Align(lipgloss.Center).Render(strings.Join(infoLines, "\n"))
	content := lipgloss.JoinVertical(lipgloss.Center, art, info)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

// renderShell draws two pixels per character cell with half blocks.
func renderShell(frame int, swell float64, palette shell.Palette) string {
	pixels := shell.Pixels(frame, swell)
	styles := paletteStyles[palette]

	var result strings.Builder
	for cy := 0; cy < shell.Height; cy++ {
		for cx := 0; cx < shell.Width; cx++ {
			top := pixels[cy*2][cx]
			bot := pixels[cy*2+1][cx]
			switch {
			case top == shell.Empty && bot == shell.Empty:
				result.WriteString(" ")
			case top == bot:
				result.WriteString(styles.fg[top].Render("█"))
			case bot == shell.Empty:
				result.WriteString(styles.fg[top].Render("▀"))
			case top == shell.Empty:
				result.WriteString(styles.fg[bot].Render("▄"))
			default:
				result.WriteString(styles.bg[top][bot].Render("▀"))
			}
		}
		if cy < shell.Height-1 {
			result.WriteString("\n")
		}
	}
	return result.String()
}
