package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/DeBrosOfficial/walletkit/pkg/actions"
	"github.com/DeBrosOfficial/walletkit/pkg/hooks"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00D4AA")).
			MarginBottom(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Width(10)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			MarginTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00D4AA")).
			Padding(1, 2)
)

func newWatchCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [address]",
		Short: "Follow the block number and an address balance live",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.open(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer rt.Close()

			m, err := newWatchModel(rt.ctx, rt.chain().Name, rt.chainID)
			if err != nil {
				return err
			}
			defer m.Close()
			if len(args) == 1 {
				m.input.SetValue(args[0])
				m.applyAddress()
			}

			p := tea.NewProgram(m, tea.WithContext(rt.ctx),
				tea.WithInput(cmd.InOrStdin()), tea.WithOutput(cmd.OutOrStdout()))
			_, err = p.Run()
			return err
		},
	}
}

type blockMsg struct{ result hooks.Result[uint64] }

type balanceMsg struct{ result hooks.Result[actions.Balance] }

// watchModel renders a live block number and the balance of the address
// typed into its input.
type watchModel struct {
	chainName string
	chainID   int64

	input   textinput.Model
	spinner spinner.Model

	blocks  *hooks.Subscription[hooks.BlockNumberArgs, uint64]
	balance *hooks.Subscription[hooks.BalanceArgs, actions.Balance]

	block hooks.Result[uint64]
	bal   hooks.Result[actions.Balance]
	err   error
	width int
}

func newWatchModel(ctx context.Context, chainName string, chainID int64) (*watchModel, error) {
	blocks, err := hooks.WatchBlockNumber(ctx, hooks.BlockNumberArgs{
		ChainID:      chainID,
		QueryOptions: hooks.QueryOptions{Watch: true},
	})
	if err != nil {
		return nil, err
	}
	balance, err := hooks.WatchBalance(ctx, hooks.BalanceArgs{
		BalanceParams: actions.BalanceParams{ChainID: chainID},
		QueryOptions:  hooks.QueryOptions{Watch: true},
	})
	if err != nil {
		blocks.Close()
		return nil, err
	}

	ti := textinput.New()
	ti.Placeholder = "0x..."
	ti.CharLimit = 42
	ti.Width = 44
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#00D4AA"))

	return &watchModel{
		chainName: chainName,
		chainID:   chainID,
		input:     ti,
		spinner:   sp,
		blocks:    blocks,
		balance:   balance,
		block:     blocks.Result(),
		bal:       balance.Result(),
	}, nil
}

// Close releases both subscriptions.
func (m *watchModel) Close() {
	m.blocks.Close()
	m.balance.Close()
}

func waitBlock(ch <-chan hooks.Result[uint64]) tea.Cmd {
	return func() tea.Msg {
		r, ok := <-ch
		if !ok {
			return nil
		}
		return blockMsg{result: r}
	}
}

func waitBalance(ch <-chan hooks.Result[actions.Balance]) tea.Cmd {
	return func() tea.Msg {
		r, ok := <-ch
		if !ok {
			return nil
		}
		return balanceMsg{result: r}
	}
}

func (m *watchModel) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
		waitBlock(m.blocks.Updates()),
		waitBalance(m.balance.Updates()),
	)
}

// applyAddress points the balance subscription at the typed address.
func (m *watchModel) applyAddress() {
	value := strings.TrimSpace(m.input.Value())
	if !common.IsHexAddress(value) {
		m.err = fmt.Errorf("invalid address %q", value)
		return
	}
	m.err = nil
	args := m.balance.Params()
	args.Address = common.HexToAddress(value)
	m.balance.Update(args)
}

func (m *watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			m.applyAddress()
			return m, nil
		}

	case blockMsg:
		m.block = msg.result
		return m, waitBlock(m.blocks.Updates())

	case balanceMsg:
		m.bal = msg.result
		return m, waitBalance(m.balance.Updates())

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *watchModel) row(label, value string, fetching bool) string {
	indicator := "  "
	if fetching {
		indicator = m.spinner.View() + " "
	}
	return labelStyle.Render(label) + indicator + valueStyle.Render(value)
}

func (m *watchModel) View() string {
	var s strings.Builder
	s.WriteString(titleStyle.Render(fmt.Sprintf("walletkit · %s (%d)", m.chainName, m.chainID)))
	s.WriteString("\n")

	block := "-"
	if m.block.Status == hooks.StatusSuccess {
		block = fmt.Sprintf("%d", m.block.Data)
	} else if m.block.Error != nil {
		block = errorStyle.Render(m.block.Error.Error())
	}
	s.WriteString(m.row("Block", block, m.block.IsFetching))
	s.WriteString("\n")

	balance := "-"
	switch {
	case m.bal.Status == hooks.StatusSuccess:
		balance = m.bal.Data.Formatted + " " + m.bal.Data.Symbol
	case m.bal.Error != nil:
		balance = errorStyle.Render(m.bal.Error.Error())
	}
	s.WriteString(m.row("Balance", balance, m.bal.IsFetching))
	s.WriteString("\n\n")

	s.WriteString(labelStyle.Render("Address"))
	s.WriteString(m.input.View())
	if m.err != nil {
		s.WriteString("\n")
		s.WriteString(errorStyle.Render(m.err.Error()))
	}
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("enter: watch address · esc: quit"))

	return boxStyle.Render(s.String()) + "\n"
}
