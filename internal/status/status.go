// ============================================================================
// STATUS RENDERER: Multi-Device Terminal Display
// ============================================================================
//
// Package status implements the Status Renderer: absolute-cursor-position
// terminal output so N concurrent Device Sessions can each own a fixed
// row band without interleaving. Styled after bitcoin-wallet-bruteforce-
// offline.go's statsReporter (periodic ticker, cumulative + instantaneous
// rate), generalized from a single scrolling line to per-device row bands,
// and after original_source gpu.rs's full-screen solution banner, using
// fatih/color for the banner/labels and mattn/go-colorable so ANSI escapes
// render correctly on Windows consoles too.
package status

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-colorable"
)

// rowsPerDevice is the height of each device's reserved band (spec section
// 4.6: rows device_id*6+1..+4 are used, so the band stride is 6).
const rowsPerDevice = 6

// startupRowsPerDevice is how many rows the one-time startup clear
// reserves per device (spec section 4.6: "5 * total_devices rows").
const startupRowsPerDevice = 5

// Snapshot is one device's state at a render tick.
type Snapshot struct {
	PlatformID    uint32
	DeviceID      uint32
	ElapsedSecs   float64
	BatchSize     uint64
	HashesPerSec  float64
	TotalHashes   uint64
	NonceHighWord uint32
	BestScore     uint32
}

// Renderer owns the shared terminal and each device's row band. Safe for
// concurrent use by one Goroutine per device, matching the one-worker-per-
// device model in spec section 5.
type Renderer struct {
	out          io.Writer
	mu           sync.Mutex
	totalDevices int

	label  *color.Color
	value  *color.Color
	banner *color.Color
}

// New wraps os.Stdout (via go-colorable, so Windows terminals also see the
// escape sequences) for totalDevices concurrent row bands, and performs
// the one-time startup screen reservation.
func New(totalDevices int) *Renderer {
	return newWithWriter(colorable.NewColorableStdout(), totalDevices)
}

func newWithWriter(out io.Writer, totalDevices int) *Renderer {
	r := &Renderer{
		out:          out,
		totalDevices: totalDevices,
		label:        color.New(color.FgCyan, color.Bold),
		value:        color.New(color.FgWhite),
		banner:       color.New(color.FgHiGreen, color.Bold),
	}
	r.reserveStartupRows()
	return r
}

func (r *Renderer) reserveStartupRows() {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprint(r.out, "\x1b[2J\x1b[H")
	for i := 0; i < startupRowsPerDevice*r.totalDevices; i++ {
		fmt.Fprintln(r.out)
	}
}

// rowBand returns the first of the four lines reserved for deviceIndex
// (its position among selected devices, not its raw device id), per
// spec section 4.6's device_id*6+1..+4 band.
func rowBand(deviceIndex int) int {
	return deviceIndex*rowsPerDevice + 1
}

// Update renders one device's Snapshot into its reserved band. deviceIndex
// is the device's position among the Orchestrator's selected devices
// (0-based), used only to pick the row band — it need not equal
// snap.DeviceID.
func (r *Renderer) Update(deviceIndex int, snap Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row := rowBand(deviceIndex)
	r.moveTo(row)
	r.clearLine()
	r.label.Fprintf(r.out, "P%d-D%d", snap.PlatformID, snap.DeviceID)
	fmt.Fprintf(r.out, "  elapsed=%.0fs\n", snap.ElapsedSecs)

	r.moveTo(row + 1)
	r.clearLine()
	fmt.Fprintf(r.out, "  batch=%d  rate=%.0f h/s  total=%d\n", snap.BatchSize, snap.HashesPerSec, snap.TotalHashes)

	r.moveTo(row + 2)
	r.clearLine()
	fmt.Fprintf(r.out, "  nonce_hi=0x%08x\n", snap.NonceHighWord)

	r.moveTo(row + 3)
	r.clearLine()
	r.value.Fprintf(r.out, "  best_score=%d\n", snap.BestScore)
}

// Announce prints the full-screen solution banner, pauses for the
// spec-adjacent 3-second dwell so a human watching the terminal has time
// to read it (supplementing original_source's announcement behavior,
// which pauses unconditionally after a qualifying hit), then re-clears
// the screen so status bands resume from a clean slate.
func (r *Renderer) Announce(platformID, deviceID uint32, checksumAddr, saltHex string, score uint32, leading, trailing uint8, elapsed time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprint(r.out, "\x1b[2J\x1b[H")
	r.banner.Fprintln(r.out, "================== SOLUTION FOUND ==================")
	fmt.Fprintf(r.out, "found by: platform %d device %d\n", platformID, deviceID)
	fmt.Fprintf(r.out, "score: %d (%d leading + %d trailing)\n", score, leading, trailing)
	fmt.Fprintf(r.out, "address: %s\n", checksumAddr)
	fmt.Fprintf(r.out, "salt: %s\n", saltHex)
	fmt.Fprintf(r.out, "time: %.2fs\n", elapsed.Seconds())
	r.banner.Fprintln(r.out, "=====================================================")
	fmt.Fprintln(r.out, "continuing search for even better solutions...")

	time.Sleep(3 * time.Second)

	fmt.Fprint(r.out, "\x1b[2J\x1b[H")
	for i := 0; i < startupRowsPerDevice*r.totalDevices; i++ {
		fmt.Fprintln(r.out)
	}
}

func (r *Renderer) moveTo(row int) {
	fmt.Fprintf(r.out, "\x1b[%d;1H", row)
}

func (r *Renderer) clearLine() {
	fmt.Fprint(r.out, "\x1b[2K")
}
