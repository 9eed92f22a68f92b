package viz

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/cr3bp/internal/dynamo"
	"github.com/san-kum/cr3bp/internal/physics"
	"github.com/san-kum/cr3bp/internal/propagate"
	"github.com/san-kum/cr3bp/internal/trajectory"
)

const (
	canvasWidth    = 60
	canvasHeight   = 20
	driftCapacity  = 600
	chartWidth     = 40
	chartHeight    = 6
	progressWidth  = 30
	updateCapacity = 256
)

// StepMsg carries one accepted step to the live view.
type StepMsg struct {
	T float64
	X dynamo.State
}

// DoneMsg ends a live propagation. Result may be nil when Err is set.
type DoneMsg struct {
	Result *propagate.Result
	Err    error
}

// ProgressRecorder forwards accepted steps to a LiveModel. Sends block
// until the view consumes them or ctx is done.
type ProgressRecorder struct {
	ctx     context.Context
	updates chan tea.Msg
}

func NewProgressRecorder(ctx context.Context) *ProgressRecorder {
	return &ProgressRecorder{ctx: ctx, updates: make(chan tea.Msg, updateCapacity)}
}

func (p *ProgressRecorder) Record(t float64, x dynamo.State) {
	select {
	case p.updates <- StepMsg{T: t, X: x.Clone()}:
	case <-p.ctx.Done():
	}
}

// Finish reports the outcome and closes the stream.
func (p *ProgressRecorder) Finish(res *propagate.Result, err error) {
	select {
	case p.updates <- DoneMsg{Result: res, Err: err}:
	case <-p.ctx.Done():
	}
	close(p.updates)
}

func (p *ProgressRecorder) Updates() <-chan tea.Msg { return p.updates }

// LiveModel follows a running propagation: progress through the time span,
// the x-y track on a Braille canvas and the Jacobi drift.
type LiveModel struct {
	title   string
	req     propagate.Request
	dyn     dynamo.System
	updates <-chan tea.Msg
	cancel  context.CancelFunc

	t, c0     float64
	steps     int
	track     []trajectory.Point
	rows      [][]float64
	drift     []float64
	component int
	showChart bool
	fit       bool

	done   bool
	result *propagate.Result
	err    error
}

// NewLiveModel builds a view for req fed by updates. cancel, when non-nil,
// is called if the user quits before the propagation ends.
func NewLiveModel(title string, req propagate.Request, updates <-chan tea.Msg, cancel context.CancelFunc) LiveModel {
	return LiveModel{
		title:   title,
		req:     req,
		dyn:     physics.NewCR3BP(req.Mu),
		updates: updates,
		cancel:  cancel,
		t:       req.Span[0],
		c0:      physics.Jacobi(req.InitialState, req.Mu),
		track:   []trajectory.Point{{X: req.InitialState[0], Y: req.InitialState[1]}},
		drift:   make([]float64, 0, driftCapacity),
	}
}

// WithFit zooms the track view onto the trajectory and the primaries
// instead of the fixed synodic window.
func (m LiveModel) WithFit(fit bool) LiveModel {
	m.fit = fit
	return m
}

func (m LiveModel) Init() tea.Cmd {
	return waitFor(m.updates)
}

func waitFor(updates <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-updates
		if !ok {
			return nil
		}
		return msg
	}
}

func (m LiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if !m.done && m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		case "p":
			m.showChart = !m.showChart
		case "tab":
			m.component = (m.component + 1) % len(Components)
		}
	case StepMsg:
		m.observe(msg)
		return m, waitFor(m.updates)
	case DoneMsg:
		m.done = true
		m.result, m.err = msg.Result, msg.Err
	}
	return m, nil
}

func (m *LiveModel) observe(msg StepMsg) {
	m.t = msg.T
	m.steps++
	m.track = append(m.track, trajectory.Point{X: msg.X[0], Y: msg.X[1]})
	m.rows = append(m.rows, append([]float64{msg.T}, msg.X...))

	m.drift = append(m.drift, physics.Jacobi(msg.X, m.req.Mu)-m.c0)
	if len(m.drift) > driftCapacity {
		m.drift = m.drift[1:]
	}
}

// Progress is the fraction of the time span covered so far.
func (m LiveModel) Progress() float64 {
	span := m.req.Span[1] - m.req.Span[0]
	if span == 0 {
		return 1
	}
	return math.Max(0, math.Min(1, (m.t-m.req.Span[0])/span))
}

func (m LiveModel) Done() bool { return m.done }

func (m LiveModel) Err() error { return m.err }

func (m LiveModel) View() string {
	var s strings.Builder
	s.WriteString(titleStyle.Render(strings.ToUpper(m.title)) + "\n")

	switch {
	case m.done && m.err != nil:
		s.WriteString(statusFailed.Render("FAILED: "+m.err.Error()) + "\n\n")
	case m.done:
		s.WriteString(statusDone.Render("DONE") + "\n\n")
	default:
		s.WriteString(statusRunning.Render("PROPAGATING") + "\n\n")
	}

	s.WriteString(ProgressBar(m.Progress(), progressWidth) + fmt.Sprintf(" %5.1f%%\n\n", 100*m.Progress()))
	s.WriteString(m.stat("t", fmt.Sprintf("%.6g", m.t)))
	s.WriteString(m.stat("steps", fmt.Sprintf("%d", m.steps)))
	if p, ok := m.dyn.(dynamo.Parameterized); ok {
		params := p.GetParams()
		names := make([]string, 0, len(params))
		for name := range params {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			s.WriteString(m.stat(name, fmt.Sprintf("%g", params[name])))
		}
	}
	s.WriteString(m.stat("C0", fmt.Sprintf("%.12g", m.c0)))
	if n := len(m.drift); n > 0 {
		s.WriteString(m.stat("C-C0", fmt.Sprintf("%.3e", m.drift[n-1])))
	}
	if m.result != nil {
		s.WriteString(m.stat("rejected", fmt.Sprintf("%d", m.result.Stats.Rejected)))
		s.WriteString(m.stat("closest", fmt.Sprintf("%.6g", m.result.ClosestApproach)))
	}
	s.WriteString("\n")

	if m.showChart && len(m.rows) > 1 {
		chart, err := PlotComponent(m.rows, Components[m.component], chartWidth, chartHeight)
		if err == nil {
			s.WriteString(graphStyle.Render(chart) + "\n")
		}
	} else {
		s.WriteString(panelStyle.Render(m.renderTrack()) + "\n")
	}

	if len(m.drift) > 1 {
		chart := asciigraph.Plot(m.drift, asciigraph.Height(4), asciigraph.Width(chartWidth), asciigraph.Caption("Jacobi drift"))
		s.WriteString(graphStyle.Render(chart) + "\n")
	}

	s.WriteString(helpStyle.Render("q quit  p toggle chart  tab component") + "\n")
	return s.String()
}

func (m LiveModel) stat(label, value string) string {
	return labelStyle.Render(label) + valueStyle.Render(value) + "\n"
}

// Frame is the world window the track is drawn in.
func (m LiveModel) Frame() Frame {
	if !m.fit {
		return SynodicFrame
	}
	pts := append(m.primaries(), m.track...)
	return FitFrame(pts, 0.05)
}

func (m LiveModel) primaries() []trajectory.Point {
	p, ok := m.dyn.(interface{ Primaries() (p1, p2 [3]float64) })
	if !ok {
		return nil
	}
	p1, p2 := p.Primaries()
	return []trajectory.Point{{X: p1[0], Y: p1[1]}, {X: p2[0], Y: p2[1]}}
}

func (m LiveModel) renderTrack() string {
	c := NewCanvas(canvasWidth, canvasHeight)
	f := m.Frame()
	for _, p := range m.primaries() {
		c.Mark(f, p)
	}
	c.Plot(f, m.track)
	return c.String()
}
