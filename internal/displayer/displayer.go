package displayer

import (
	"context"
	"fmt"
	"sync"

	"obdboard/internal/models"
	"obdboard/internal/poller"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

const (
	appTitle = "obdboard - OBD-II live dashboard"
	helpKeys = "[1 - Dashboard] [2 - DTC] [s - Start] [x - Stop] [r - Refresh DTC] [q - Quit]"

	cardHeight = 5
	cardWidth  = 26
)

// Controller is what the Start/Stop affordances drive.
type Controller interface {
	Start() bool
	Stop() bool
	RefreshTroubleCodes()
}

// Displayer handles the TUI. Its View methods only record state; the state
// is copied into the widgets on the UI goroutine right before each draw.
type Displayer struct {
	app        *tview.Application
	tabs       *tview.Pages
	root       *tview.Flex
	controller Controller
	ctx        context.Context
	cancel     context.CancelFunc
	dirty      chan struct{}

	mu    sync.Mutex
	state state

	// UI elements cached for updates
	cards      map[poller.Key]*tview.TextView
	startBtn   *tview.Button
	stopBtn    *tview.Button
	statusText *tview.TextView
	helpText   *tview.TextView
	dtcTable   *tview.Table
}

type state struct {
	cards        map[poller.Key]string
	running      bool
	status       string
	codes        []models.DTCEntry
	codesChanged bool
}

var _ poller.View = (*Displayer)(nil)

func New() *Displayer {
	ctx, cancel := context.WithCancel(context.Background())
	d := &Displayer{
		app:    tview.NewApplication(),
		tabs:   tview.NewPages(),
		ctx:    ctx,
		cancel: cancel,
		dirty:  make(chan struct{}, 1),
		cards:  make(map[poller.Key]*tview.TextView, len(poller.Parameters)),
		state: state{
			cards:        make(map[poller.Key]string, len(poller.Parameters)),
			status:       poller.StatusNotConnected,
			codesChanged: true,
		},
	}
	for _, p := range poller.Parameters {
		d.state.cards[p.Key] = poller.NotAvailable
	}
	d.build()
	d.applyState()
	return d
}

// Bind attaches the controller behind the Start/Stop buttons.
func (d *Displayer) Bind(c Controller) {
	d.controller = c
}

func (d *Displayer) Run() error {
	d.app.SetRoot(d.root, true).EnableMouse(true)
	d.app.SetFocus(d.startBtn)
	d.app.SetInputCapture(d.handleKey)

	// central BeforeDraw to update UI elements
	d.app.SetBeforeDrawFunc(func(screen tcell.Screen) bool {
		d.applyState()
		return false
	})

	go d.refreshLoop()

	return d.app.Run()
}

func (d *Displayer) Shutdown() {
	d.cancel()
	d.app.Stop()
}

func (d *Displayer) SetCard(key poller.Key, text string) {
	if _, ok := poller.ParameterByKey(key); !ok {
		return
	}
	d.mu.Lock()
	d.state.cards[key] = text
	d.mu.Unlock()
	d.notify()
}

func (d *Displayer) SetRunning(running bool) {
	d.mu.Lock()
	d.state.running = running
	d.mu.Unlock()
	d.notify()
}

func (d *Displayer) SetStatus(status string) {
	d.mu.Lock()
	d.state.status = status
	d.mu.Unlock()
	d.notify()
}

func (d *Displayer) SetTroubleCodes(codes []models.DTCEntry) {
	d.mu.Lock()
	d.state.codes = append([]models.DTCEntry(nil), codes...)
	d.state.codesChanged = true
	d.mu.Unlock()
	d.notify()
}

func (d *Displayer) notify() {
	select {
	case d.dirty <- struct{}{}:
	default:
	}
}

func (d *Displayer) build() {
	title := tview.NewTextView().SetTextAlign(tview.AlignCenter).SetText(appTitle)
	d.statusText = tview.NewTextView().SetTextAlign(tview.AlignCenter).SetDynamicColors(true)
	d.helpText = tview.NewTextView().SetTextAlign(tview.AlignCenter).SetText(helpKeys)

	headerFlex := tview.NewFlex().SetDirection(tview.FlexRow)
	headerFlex.AddItem(title, 1, 0, false)
	headerFlex.AddItem(d.statusText, 1, 0, false)
	headerFlex.AddItem(d.helpText, 1, 0, false)

	d.dtcTable = d.buildDTC()
	d.tabs.AddPage("dashboard", d.buildDashboard(), true, true)
	d.tabs.AddPage("dtc", d.dtcTable, true, false)

	// header stays visible above the pages
	d.root = tview.NewFlex().SetDirection(tview.FlexRow)
	d.root.AddItem(headerFlex, 3, 0, false)
	d.root.AddItem(d.tabs, 0, 1, true)
}

func (d *Displayer) buildDashboard() tview.Primitive {
	grid := tview.NewGrid().
		SetRows(cardHeight, cardHeight, cardHeight, cardHeight).
		SetColumns(cardWidth, cardWidth, cardWidth).
		SetGap(1, 2)

	for _, p := range poller.Parameters {
		card := tview.NewTextView().SetTextAlign(tview.AlignCenter).SetDynamicColors(true)
		card.SetBorder(true).SetTitle(" " + p.Title + " ")
		grid.AddItem(card, p.Row, p.Col, 1, 1, 0, 0, false)
		d.cards[p.Key] = card
	}

	d.startBtn = tview.NewButton("Start").SetSelectedFunc(d.onStart)
	d.stopBtn = tview.NewButton("Stop").SetSelectedFunc(d.onStop)
	d.startBtn.SetExitFunc(func(tcell.Key) { d.app.SetFocus(d.stopBtn) })
	d.stopBtn.SetExitFunc(func(tcell.Key) { d.app.SetFocus(d.startBtn) })

	buttons := tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(d.startBtn, 10, 0, true).
		AddItem(nil, 4, 0, false).
		AddItem(d.stopBtn, 10, 0, false).
		AddItem(nil, 0, 1, false)

	gridHeight := 4*cardHeight + 3
	body := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(grid, gridHeight, 0, false).
		AddItem(nil, 1, 0, false).
		AddItem(buttons, 1, 0, true)

	return center(body, 3*cardWidth+4, gridHeight+2)
}

// center places p in the middle of the available space.
func center(p tview.Primitive, width, height int) tview.Primitive {
	return tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().SetDirection(tview.FlexRow).
			AddItem(nil, 0, 1, false).
			AddItem(p, height, 1, true).
			AddItem(nil, 0, 1, false), width, 1, true).
		AddItem(nil, 0, 1, false)
}

func (d *Displayer) buildDTC() *tview.Table {
	tbl := tview.NewTable().SetBorders(true)
	setDTCHeader(tbl)
	return tbl
}

func setDTCHeader(tbl *tview.Table) {
	tbl.SetCell(0, 0, tview.NewTableCell("Code").SetSelectable(false).SetAlign(tview.AlignCenter))
	tbl.SetCell(0, 1, tview.NewTableCell("Description").SetSelectable(false).SetAlign(tview.AlignCenter))
}

func (d *Displayer) handleKey(event *tcell.EventKey) *tcell.EventKey {
	switch event.Rune() {
	case 'q', 'Q':
		d.Shutdown()
		return nil
	case '1':
		d.tabs.SwitchToPage("dashboard")
		return nil
	case '2':
		d.tabs.SwitchToPage("dtc")
		return nil
	case 's', 'S':
		d.onStart()
		return nil
	case 'x', 'X':
		d.onStop()
		return nil
	case 'r', 'R':
		if d.controller != nil {
			d.controller.RefreshTroubleCodes()
		}
		return nil
	}
	return event
}

func (d *Displayer) onStart() {
	if d.controller == nil || !d.controller.Start() {
		return
	}
	d.applyState()
	d.app.SetFocus(d.stopBtn)
}

func (d *Displayer) onStop() {
	if d.controller == nil || !d.controller.Stop() {
		return
	}
	d.applyState()
	d.app.SetFocus(d.startBtn)
}

// applyState copies the recorded state into the widgets. It runs on the UI
// goroutine only.
func (d *Displayer) applyState() {
	d.mu.Lock()
	st := d.state
	cards := make(map[poller.Key]string, len(st.cards))
	for k, v := range st.cards {
		cards[k] = v
	}
	d.state.codesChanged = false
	d.mu.Unlock()

	for key, card := range d.cards {
		card.SetText(fmt.Sprintf("\n[::b]%s", tview.Escape(cards[key])))
	}

	d.startBtn.SetDisabled(st.running)
	d.stopBtn.SetDisabled(!st.running)

	color := "red"
	if st.running {
		color = "green"
	}
	d.statusText.SetText(fmt.Sprintf("Status: [%s]%s[white]", color, tview.Escape(st.status)))

	if st.codesChanged {
		d.fillDTC(st.codes)
	}
}

func (d *Displayer) fillDTC(codes []models.DTCEntry) {
	d.dtcTable.Clear()
	setDTCHeader(d.dtcTable)
	if len(codes) == 0 {
		d.dtcTable.SetCell(1, 0, tview.NewTableCell("-"))
		d.dtcTable.SetCell(1, 1, tview.NewTableCell("No trouble codes"))
		return
	}
	for i, e := range codes {
		d.dtcTable.SetCell(i+1, 0, tview.NewTableCell(e.Code))
		d.dtcTable.SetCell(i+1, 1, tview.NewTableCell(e.Description))
	}
}

func (d *Displayer) refreshLoop() {
	for {
		select {
		case <-d.ctx.Done():
			return
		case <-d.dirty:
			// force redraw (BeforeDraw applies the state)
			d.app.QueueUpdateDraw(func() {})
		}
	}
}
