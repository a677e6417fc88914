package domain

// BreakoutDirection is the declared direction of a range break.
type BreakoutDirection string

// Breakout direction constants. DirectionNone means the scan window
// ended without a qualifying breakout; the day yields no trade.
const (
	BreakoutUp   BreakoutDirection = "UP"
	BreakoutDown BreakoutDirection = "DOWN"
	BreakoutNone BreakoutDirection = "NONE"
)

// BreakoutSignal is the detector's verdict for one trading day.
// SignalBarIndex indexes into the day's bar slice; it is -1 when
// Direction is BreakoutNone.
type BreakoutSignal struct {
	Day            string
	Direction      BreakoutDirection
	SignalBarIndex int
}
