package detector

// BodyPart is a stable logical body-part identifier, independent of the raw
// keypoint names used by a particular detector backend.
type BodyPart string

// Logical body parts.
const (
	Nose          BodyPart = "nose"
	LeftEye       BodyPart = "leftEye"
	RightEye      BodyPart = "rightEye"
	LeftEar       BodyPart = "leftEar"
	RightEar      BodyPart = "rightEar"
	LeftShoulder  BodyPart = "leftShoulder"
	RightShoulder BodyPart = "rightShoulder"
	LeftElbow     BodyPart = "leftElbow"
	RightElbow    BodyPart = "rightElbow"
	LeftWrist     BodyPart = "leftWrist"
	RightWrist    BodyPart = "rightWrist"
	LeftHip       BodyPart = "leftHip"
	RightHip      BodyPart = "rightHip"
	LeftKnee      BodyPart = "leftKnee"
	RightKnee     BodyPart = "rightKnee"
	LeftAnkle     BodyPart = "leftAnkle"
	RightAnkle    BodyPart = "rightAnkle"
)

// Side is the body side a part belongs to.
type Side int

const (
	Center Side = iota
	Left
	Right
)

// rawNames lists the keypoint names each backend may use for a body part.
var rawNames = map[BodyPart][]string{
	Nose:          {"nose", "head"},
	LeftEye:       {"left_eye", "leftEye"},
	RightEye:      {"right_eye", "rightEye"},
	LeftEar:       {"left_ear", "leftEar"},
	RightEar:      {"right_ear", "rightEar"},
	LeftShoulder:  {"left_shoulder", "leftShoulder"},
	RightShoulder: {"right_shoulder", "rightShoulder"},
	LeftElbow:     {"left_elbow", "leftElbow"},
	RightElbow:    {"right_elbow", "rightElbow"},
	LeftWrist:     {"left_wrist", "leftWrist", "leftHand"},
	RightWrist:    {"right_wrist", "rightWrist", "rightHand"},
	LeftHip:       {"left_hip", "leftHip"},
	RightHip:      {"right_hip", "rightHip"},
	LeftKnee:      {"left_knee", "leftKnee"},
	RightKnee:     {"right_knee", "rightKnee"},
	LeftAnkle:     {"left_ankle", "leftAnkle", "leftFoot"},
	RightAnkle:    {"right_ankle", "rightAnkle", "rightFoot"},
}

// aliases maps legacy UI identifiers onto logical parts.
var aliases = map[string]BodyPart{
	"head":      Nose,
	"leftHand":  LeftWrist,
	"rightHand": RightWrist,
	"leftFoot":  LeftAnkle,
	"rightFoot": RightAnkle,
}

// AllBodyParts returns every logical body part in skeleton order.
func AllBodyParts() []BodyPart {
	return []BodyPart{
		Nose, LeftEye, RightEye, LeftEar, RightEar,
		LeftShoulder, RightShoulder, LeftElbow, RightElbow,
		LeftWrist, RightWrist, LeftHip, RightHip,
		LeftKnee, RightKnee, LeftAnkle, RightAnkle,
	}
}

// ParseBodyPart resolves a logical id or legacy alias. ok is false for
// unknown names.
func ParseBodyPart(s string) (BodyPart, bool) {
	if _, ok := rawNames[BodyPart(s)]; ok {
		return BodyPart(s), true
	}
	bp, ok := aliases[s]
	return bp, ok
}

// RawNames returns the accepted raw keypoint names for the part.
func (b BodyPart) RawNames() []string {
	return rawNames[b]
}

// Side returns the side of the body the part is on.
func (b BodyPart) Side() Side {
	switch b {
	case LeftEye, LeftEar, LeftShoulder, LeftElbow, LeftWrist, LeftHip, LeftKnee, LeftAnkle:
		return Left
	case RightEye, RightEar, RightShoulder, RightElbow, RightWrist, RightHip, RightKnee, RightAnkle:
		return Right
	default:
		return Center
	}
}

// IsWrist reports whether the part is a wrist.
func (b BodyPart) IsWrist() bool {
	return b == LeftWrist || b == RightWrist
}

// IsArm reports whether the part is a wrist or an elbow.
func (b BodyPart) IsArm() bool {
	return b.IsWrist() || b == LeftElbow || b == RightElbow
}

// Lookup finds the keypoint for part in an index built by Pose.Index.
func Lookup(idx map[string]Keypoint, part BodyPart) (Keypoint, bool) {
	for _, name := range rawNames[part] {
		if kp, ok := idx[name]; ok {
			return kp, true
		}
	}
	return Keypoint{}, false
}

// Resolve indexes the pose once and returns the keypoints of the requested
// parts that are present. Confidence is not checked here.
func Resolve(p *Pose, parts []BodyPart) map[BodyPart]Keypoint {
	out := make(map[BodyPart]Keypoint, len(parts))
	if p == nil {
		return out
	}
	idx := p.Index()
	for _, part := range parts {
		if kp, ok := Lookup(idx, part); ok {
			out[part] = kp
		}
	}
	return out
}
