package components

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/paulmach/orb"

	"github.com/rendis/leadsweep/internal/model"
	"github.com/rendis/leadsweep/internal/tui/styles"
)

// SweepMap renders sweep points as a Braille scatter plot. Points that are
// done draw in the success color, pending ones muted.
type SweepMap struct {
	width   int
	height  int
	points  []model.Coordinate
	done    map[model.Coordinate]bool
	bound   orb.Bound
	hasData bool
}

func NewSweepMap(width, height int) SweepMap {
	return SweepMap{width: width, height: height, done: map[model.Coordinate]bool{}}
}

func (m *SweepMap) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// SetPoints replaces the plotted points and refits the viewport.
func (m *SweepMap) SetPoints(points []model.Coordinate) {
	m.points = points
	m.hasData = len(points) > 0
	if !m.hasData {
		return
	}
	var mp orb.MultiPoint
	for _, p := range points {
		mp = append(mp, p.Point())
	}
	b := mp.Bound()
	// pad so edge points stay inside the grid
	pad := math.Max(math.Max(b.Max.Lat()-b.Min.Lat(), b.Max.Lon()-b.Min.Lon())*0.05, 0.01)
	m.bound = b.Pad(pad)
}

func (m *SweepMap) MarkDone(c model.Coordinate) {
	m.done[c] = true
}

// Done reports whether c was marked.
func (m SweepMap) Done(c model.Coordinate) bool {
	return m.done[c]
}

// Braille cells are 2x4 dot grids; bit i lights dot i.
var brailleDots = [8]rune{0x01, 0x02, 0x04, 0x08, 0x10, 0x20, 0x40, 0x80}

var dotPositions = [8][2]int{
	{0, 0}, {1, 0}, {2, 0}, {0, 1},
	{1, 1}, {2, 1}, {3, 0}, {3, 1},
}

func (m SweepMap) View() string {
	if m.width <= 0 || m.height <= 0 {
		return ""
	}
	cols, rows := m.width, m.height
	if !m.hasData {
		return strings.TrimRight(strings.Repeat(strings.Repeat(" ", cols)+"\n", rows), "\n")
	}

	dotW, dotH := cols*2, rows*4
	latRange := m.bound.Max.Lat() - m.bound.Min.Lat()
	lngRange := m.bound.Max.Lon() - m.bound.Min.Lon()

	// 1 degree of longitude shrinks with latitude; braille dots are ~square.
	cosLat := math.Cos(m.bound.Center().Lat() * math.Pi / 180)
	geoAspect := lngRange * cosLat / latRange
	effW, effH := dotW, dotH
	offX, offY := 0, 0
	if geoAspect < float64(dotW)/float64(dotH) {
		effW = max(int(float64(dotH)*geoAspect), 4)
		offX = (dotW - effW) / 2
	} else {
		effH = max(int(float64(dotW)/geoAspect), 4)
		offY = (dotH - effH) / 2
	}

	pending := make([][]bool, dotH)
	done := make([][]bool, dotH)
	for i := range pending {
		pending[i] = make([]bool, dotW)
		done[i] = make([]bool, dotW)
	}
	for _, p := range m.points {
		x := offX + int((p.Lng-m.bound.Min.Lon())/lngRange*float64(effW-1))
		y := offY + int((m.bound.Max.Lat()-p.Lat)/latRange*float64(effH-1))
		if x < 0 || x >= dotW || y < 0 || y >= dotH {
			continue
		}
		if m.done[p] {
			done[y][x] = true
		} else {
			pending[y][x] = true
		}
	}

	doneStyle := lipgloss.NewStyle().Foreground(styles.Success)
	pendingStyle := lipgloss.NewStyle().Foreground(styles.Muted)

	var sb strings.Builder
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			var doneVal, pendingVal rune = 0x2800, 0x2800
			for dot, pos := range dotPositions {
				dy, dx := row*4+pos[0], col*2+pos[1]
				if done[dy][dx] {
					doneVal |= brailleDots[dot]
				}
				if pending[dy][dx] {
					pendingVal |= brailleDots[dot]
				}
			}
			switch {
			case doneVal != 0x2800:
				sb.WriteString(doneStyle.Render(string(doneVal)))
			case pendingVal != 0x2800:
				sb.WriteString(pendingStyle.Render(string(pendingVal)))
			default:
				sb.WriteRune(' ')
			}
		}
		if row < rows-1 {
			sb.WriteRune('\n')
		}
	}
	return sb.String()
}
