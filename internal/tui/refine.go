package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ShayCichocki/taskgenie/internal/prompt"
	"github.com/ShayCichocki/taskgenie/pkg/models"
)

// Refiner regenerates drafts for the given instructions.
type Refiner func(ctx context.Context, instructions string, drafts []models.ChildDraft) ([]models.ChildDraft, error)

// refinedMsg carries the result of one refinement round.
type refinedMsg struct {
	drafts []models.ChildDraft
	err    error
}

// RefineModel is the Bubble Tea model of the refinement screen.
type RefineModel struct {
	ctx     context.Context
	refine  Refiner
	item    models.WorkItem
	drafts  []models.ChildDraft
	history []string
	input   *InputField
	width   int

	busy      bool
	err       error
	accepted  bool
	cancelled bool

	titleStyle lipgloss.Style
	labelStyle lipgloss.Style
	draftStyle lipgloss.Style
	mutedStyle lipgloss.Style
	errorStyle lipgloss.Style
}

// NewRefineModel creates the refinement screen for item's drafts.
func NewRefineModel(ctx context.Context, item models.WorkItem, drafts []models.ChildDraft, refine Refiner) *RefineModel {
	return &RefineModel{
		ctx:    ctx,
		refine: refine,
		item:   item,
		drafts: append([]models.ChildDraft(nil), drafts...),
		input:  NewInputField(),
		width:  80,

		titleStyle: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")),
		labelStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		draftStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		mutedStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		errorStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
}

// Init starts the cursor blink.
func (m *RefineModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles key presses, submitted instructions and refinement results.
func (m *RefineModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.SetWidth(msg.Width)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+s":
			if m.busy {
				return m, nil
			}
			m.accepted = true
			return m, tea.Quit
		case "esc", "ctrl+c":
			m.cancelled = true
			return m, tea.Quit
		}
		if m.busy {
			return m, nil
		}

	case InstructionsSubmittedMsg:
		if m.refine == nil {
			m.err = errors.New("refinement is not available")
			return m, nil
		}
		m.busy = true
		m.err = nil
		m.history = append(m.history, msg.Instructions)
		return m, m.refineCmd(msg.Instructions)

	case refinedMsg:
		m.busy = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.drafts = msg.drafts
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *RefineModel) refineCmd(instructions string) tea.Cmd {
	ctx, refine := m.ctx, m.refine
	current := append([]models.ChildDraft(nil), m.drafts...)
	return func() tea.Msg {
		drafts, err := refine(ctx, instructions, current)
		return refinedMsg{drafts: drafts, err: err}
	}
}

// View renders the draft list, the status line and the input.
func (m *RefineModel) View() string {
	var b strings.Builder

	childType, ok := models.ExpectedChildType(m.item, true)
	if !ok {
		childType = "Child Work Items"
	}
	b.WriteString(m.titleStyle.Render(fmt.Sprintf("%s #%d %s", m.item.Type, m.item.ID, m.item.Title)))
	b.WriteString("\n")
	b.WriteString(m.labelStyle.Render(fmt.Sprintf("%d %s", len(m.drafts), childType)))
	b.WriteString("\n\n")

	if len(m.drafts) == 0 {
		b.WriteString(m.mutedStyle.Render("  (no drafts)"))
		b.WriteString("\n")
	}
	for i, d := range m.drafts {
		b.WriteString(m.draftStyle.Render(fmt.Sprintf("%2d. %s", i+1, d.Title)))
		b.WriteString("\n")
		if preview := prompt.DraftPreview(d.Description); preview != "" {
			b.WriteString(m.mutedStyle.Render("    " + preview))
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")

	switch {
	case m.busy:
		b.WriteString(m.labelStyle.Render("Refining drafts..."))
	case m.err != nil:
		b.WriteString(m.errorStyle.Render("Refinement failed: " + m.err.Error()))
	case len(m.history) > 0:
		b.WriteString(m.labelStyle.Render(fmt.Sprintf("Applied: %q", m.history[len(m.history)-1])))
	}
	b.WriteString("\n")

	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(m.mutedStyle.Render("enter refine · ctrl+s accept · esc cancel"))
	return b.String()
}

// Drafts returns the current drafts.
func (m *RefineModel) Drafts() []models.ChildDraft {
	return m.drafts
}

// Accepted reports whether the user accepted the drafts.
func (m *RefineModel) Accepted() bool {
	return m.accepted
}

// Instructions returns every instruction submitted, in order.
func (m *RefineModel) Instructions() []string {
	return m.history
}

// RunRefine runs the refinement screen until the user accepts or cancels.
func RunRefine(m *RefineModel) ([]models.ChildDraft, bool, error) {
	final, err := tea.NewProgram(m, tea.WithContext(m.ctx)).Run()
	if err != nil {
		return nil, false, fmt.Errorf("refinement screen: %w", err)
	}
	rm, ok := final.(*RefineModel)
	if !ok || !rm.accepted {
		return nil, false, nil
	}
	return rm.drafts, true, nil
}
