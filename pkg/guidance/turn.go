package guidance

// TurnType is the maneuver stored on an edge at build time. The codes are
// part of the package wire format, their numeric values never change.
type TurnType uint8

const (
	NoTurn TurnType = iota
	GoStraight
	TurnSlightRight
	TurnRight
	TurnSharpRight
	UTurn
	TurnSharpLeft
	TurnLeft
	TurnSlightLeft
	ReachViaLocation
	HeadOn
	EnterRoundabout
	LeaveRoundabout
	StayOnRoundabout
	StartAtEndOfStreet
	ReachedYourDestination
)

func (t TurnType) String() string {
	switch t {
	case NoTurn:
		return "NO_TURN"
	case GoStraight:
		return "GO_STRAIGHT"
	case TurnSlightRight:
		return "TURN_SLIGHT_RIGHT"
	case TurnRight:
		return "TURN_RIGHT"
	case TurnSharpRight:
		return "TURN_SHARP_RIGHT"
	case UTurn:
		return "U_TURN"
	case TurnSharpLeft:
		return "TURN_SHARP_LEFT"
	case TurnLeft:
		return "TURN_LEFT"
	case TurnSlightLeft:
		return "TURN_SLIGHT_LEFT"
	case ReachViaLocation:
		return "REACH_VIA_LOCATION"
	case HeadOn:
		return "HEAD_ON"
	case EnterRoundabout:
		return "ENTER_ROUNDABOUT"
	case LeaveRoundabout:
		return "LEAVE_ROUNDABOUT"
	case StayOnRoundabout:
		return "STAY_ON_ROUNDABOUT"
	case StartAtEndOfStreet:
		return "START_AT_END_OF_STREET"
	case ReachedYourDestination:
		return "REACHED_YOUR_DESTINATION"
	}
	return "INVALID"
}

// Silent reports whether the maneuver is a bookkeeping code that renderers
// skip when building a turn-by-turn list.
func (t TurnType) Silent() bool {
	return t == NoTurn || t == StayOnRoundabout
}

// Description renders the spoken form of the maneuver. An empty street
// name drops the "onto ..." suffix.
func (t TurnType) Description(streetName string) string {
	onto := ""
	if streetName != "" {
		onto = " onto " + streetName
	}
	switch t {
	case GoStraight:
		return "Continue straight" + onto
	case TurnSlightRight:
		return "Turn slightly right" + onto
	case TurnRight:
		return "Turn right" + onto
	case TurnSharpRight:
		return "Turn sharply right" + onto
	case UTurn:
		return "Make a U-turn" + onto
	case TurnSharpLeft:
		return "Turn sharply left" + onto
	case TurnLeft:
		return "Turn left" + onto
	case TurnSlightLeft:
		return "Turn slightly left" + onto
	case ReachViaLocation:
		return "You have reached your via point"
	case HeadOn:
		if streetName != "" {
			return "Head on " + streetName
		}
		return "Head on"
	case EnterRoundabout:
		return "Enter the roundabout"
	case LeaveRoundabout:
		return "Leave the roundabout" + onto
	case StartAtEndOfStreet:
		if streetName != "" {
			return "Start at the end of " + streetName
		}
		return "Start at the end of the street"
	case ReachedYourDestination:
		return "You have reached your destination"
	}
	return ""
}

// Instruction is one entry of a turn-by-turn list. Distance and Time cover
// the stretch driven since the previous instruction, GeometryIndex points
// at the position of the maneuver inside the route geometry.
type Instruction struct {
	Type          TurnType `json:"type"`
	Description   string   `json:"description"`
	StreetName    string   `json:"street_name"`
	Distance      float64  `json:"distance"`
	Time          float64  `json:"time"`
	GeometryIndex int      `json:"geometry_index"`
}

func NewInstruction(turnType TurnType, streetName string, distance, time float64, geometryIndex int) Instruction {
	return Instruction{
		Type:          turnType,
		Description:   turnType.Description(streetName),
		StreetName:    streetName,
		Distance:      distance,
		Time:          time,
		GeometryIndex: geometryIndex,
	}
}
