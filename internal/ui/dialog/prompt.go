package dialog

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/pgtop/internal/theme"
)

// Prompt asks the operator for one line of text.
type Prompt struct {
	title    string
	hint     string
	input    textinput.Model
	validate func(string) error
	submit   func(string) tea.Msg
	err      string
	visible  bool
	width    int
}

// NewPrompt creates a prompt. validate may be nil; submit turns the
// accepted value into a message.
func NewPrompt(title, hint, initial string, validate func(string) error, submit func(string) tea.Msg) Prompt {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 256
	ti.SetValue(initial)
	ti.CursorEnd()
	return Prompt{
		title:    title,
		hint:     hint,
		input:    ti,
		validate: validate,
		submit:   submit,
		width:    60,
	}
}

// Masked hides the typed characters, for passwords.
func (p *Prompt) Masked() {
	p.input.EchoMode = textinput.EchoPassword
	p.input.EchoCharacter = '*'
}

// Show makes the prompt visible and focuses the input.
func (p *Prompt) Show() tea.Cmd {
	p.visible = true
	p.err = ""
	return p.input.Focus()
}

// Hide makes the prompt invisible.
func (p *Prompt) Hide() {
	p.visible = false
	p.input.Blur()
}

// Visible returns whether the prompt is shown.
func (p Prompt) Visible() bool {
	return p.visible
}

// Value returns the current input.
func (p Prompt) Value() string {
	return p.input.Value()
}

// Err returns the last validation error shown to the operator.
func (p Prompt) Err() string {
	return p.err
}

// SetSize sets the available width.
func (p *Prompt) SetSize(width, _ int) {
	p.width = min(60, width-4)
	p.input.Width = p.width - 8
}

// Update handles keys while the prompt is visible.
func (p Prompt) Update(msg tea.Msg) (Prompt, tea.Cmd) {
	if !p.visible {
		return p, nil
	}
	if km, ok := msg.(tea.KeyMsg); ok {
		switch km.String() {
		case "esc":
			p.Hide()
			return p, nil
		case "enter":
			val := p.input.Value()
			if p.validate != nil {
				if err := p.validate(val); err != nil {
					p.err = err.Error()
					return p, nil
				}
			}
			p.Hide()
			if p.submit == nil {
				return p, nil
			}
			submit := p.submit
			return p, func() tea.Msg { return submit(val) }
		}
	}
	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	return p, cmd
}

// View renders the prompt box.
func (p Prompt) View() string {
	if !p.visible {
		return ""
	}
	th := theme.Current
	parts := []string{th.DialogTitle.Render(p.title)}
	if p.hint != "" {
		parts = append(parts, th.MutedText.Width(p.width-4).Render(p.hint))
	}
	parts = append(parts, p.input.View())
	if p.err != "" {
		parts = append(parts, th.ErrorText.Width(p.width-4).Render(p.err))
	}
	return th.DialogBorder.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}
