package guidance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTurnTypeDescriptions(t *testing.T) {
	assert.Equal(t, "Turn right onto Jalan Malioboro", TurnRight.Description("Jalan Malioboro"))
	assert.Equal(t, "Turn left", TurnLeft.Description(""))
	assert.Equal(t, "You have reached your destination", ReachedYourDestination.Description("Jalan Malioboro"))
	assert.Equal(t, "Head on Margo Utomo", HeadOn.Description("Margo Utomo"))
	assert.Equal(t, "Enter the roundabout", EnterRoundabout.Description(""))
}

func TestTurnTypeSilent(t *testing.T) {
	assert.True(t, NoTurn.Silent())
	assert.True(t, StayOnRoundabout.Silent())
	assert.False(t, TurnRight.Silent())
	assert.False(t, ReachedYourDestination.Silent())
}

func TestTurnTypeWireCodesAreStable(t *testing.T) {
	// stored in package files, renumbering would corrupt old data
	assert.Equal(t, TurnType(0), NoTurn)
	assert.Equal(t, TurnType(5), UTurn)
	assert.Equal(t, TurnType(9), ReachViaLocation)
	assert.Equal(t, TurnType(15), ReachedYourDestination)
}
