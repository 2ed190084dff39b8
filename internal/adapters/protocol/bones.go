package protocol

import "strconv"

// boneNames is the fixed bone-id table announced by the capture device:
// ids index into it in order.
var boneNames = []string{
	"root",
	"torso_1", "torso_2", "torso_3", "torso_4", "torso_5", "torso_6", "torso_7",
	"neck_1", "neck_2",
	"head",
	"l_shoulder", "l_up_arm", "l_low_arm", "l_hand",
	"r_shoulder", "r_up_arm", "r_low_arm", "r_hand",
	"l_up_leg", "l_low_leg", "l_foot", "l_toes",
	"r_up_leg", "r_low_leg", "r_foot", "r_toes",
}

// BoneName returns the canonical name for a bone id. Ids outside the table
// synthesize a stable placeholder name instead of failing.
func BoneName(id int) string {
	if id >= 0 && id < len(boneNames) {
		return boneNames[id]
	}
	return "bone_" + strconv.Itoa(id)
}
