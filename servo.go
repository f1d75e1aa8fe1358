package purpleeye

import (
	"errors"
	"fmt"
	"math"
)

var ErrAngleOutOfRange = errors.New("servo angle out of range")

// ServoCommandLen is the size of an encoded servo command.
const ServoCommandLen = 4

// ServoCommand holds the four servo angles sent to the robot in one write.
type ServoCommand struct {
	RightLeg  int8
	RightFoot int8
	LeftFoot  int8
	LeftLeg   int8
}

// NewServoCommand builds a command from plain ints. Values that do not fit in a
// signed byte are rejected instead of being truncated.
func NewServoCommand(rightLeg, rightFoot, leftFoot, leftLeg int) (ServoCommand, error) {
	values := [ServoCommandLen]int{rightLeg, rightFoot, leftFoot, leftLeg}
	names := [ServoCommandLen]string{"right leg", "right foot", "left foot", "left leg"}
	for i, v := range values {
		if v < math.MinInt8 || v > math.MaxInt8 {
			return ServoCommand{}, fmt.Errorf("%w: %s = %d", ErrAngleOutOfRange, names[i], v)
		}
	}
	return ServoCommand{
		RightLeg:  int8(rightLeg),
		RightFoot: int8(rightFoot),
		LeftFoot:  int8(leftFoot),
		LeftLeg:   int8(leftLeg),
	}, nil
}

// Encode packs the command in wire order: right leg, right foot, left foot, left leg.
func (c ServoCommand) Encode() []byte {
	return []byte{
		byte(c.RightLeg),
		byte(c.RightFoot),
		byte(c.LeftFoot),
		byte(c.LeftLeg),
	}
}

func (c ServoCommand) String() string {
	return fmt.Sprintf("(%d, %d, %d, %d)", c.RightLeg, c.RightFoot, c.LeftFoot, c.LeftLeg)
}
