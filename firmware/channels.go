package firmware

import "github.com/mdouchement/stimd/stimpico"

// ChannelCount mirrors the protocol constant: eight output lines on the
// switch matrix.
const ChannelCount = stimpico.ChannelCount

// ChannelBank enforces the at-most-one-active-channel invariant on the
// switch hardware. Only the command loop goroutine writes it.
type ChannelBank struct {
	board  Board
	active int // 0 means none
}

func NewChannelBank(board Board) *ChannelBank {
	b := &ChannelBank{board: board}
	b.AllOff()
	return b
}

// Select drives exactly one line high and all others low. A channel
// outside 1..8 is a no-op: the previous selection stays intact and no
// out-of-range line is ever activated.
func (b *ChannelBank) Select(n int) {
	if n < 1 || n > ChannelCount {
		return
	}

	for i := 1; i <= ChannelCount; i++ {
		b.board.SetChannelLine(i, i == n)
	}
	b.active = n
}

// AllOff clears every line. This is the initialization state.
func (b *ChannelBank) AllOff() {
	for i := 1; i <= ChannelCount; i++ {
		b.board.SetChannelLine(i, false)
	}
	b.active = 0
}

// Active returns the selected channel, 0 when none.
func (b *ChannelBank) Active() int {
	return b.active
}
