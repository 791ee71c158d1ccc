package capture

// Step is one guided photo of the wizard.
type Step struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Hint     string `json:"hint"`
	Optional bool   `json:"optional"`
}

const (
	// MileageStep is the index of the mileage form shown before any photo.
	MileageStep = -1
	// StepCount is the number of photo slots.
	StepCount = 8
	// RequiredPhotos is how many leading slots must be filled to finalize.
	RequiredPhotos = 7
	lastStep       = StepCount - 1
)

// Steps is the fixed, ordered capture sequence. Only the last one is optional.
var Steps = [StepCount]Step{
	{Key: "odometer_photo", Label: "Odometer", Hint: "Frame the whole dashboard so the mileage reading is legible."},
	{Key: "fuel_photo", Label: "Fuel level", Hint: "Show the fuel gauge with the ignition on."},
	{Key: "front_photo", Label: "Front", Hint: "Stand two metres away and include the plate and both headlights."},
	{Key: "rear_photo", Label: "Rear", Hint: "Include the plate, bumper and both tail lights."},
	{Key: "left_photo", Label: "Left side", Hint: "Capture the whole side from bumper to bumper."},
	{Key: "right_photo", Label: "Right side", Hint: "Capture the whole side from bumper to bumper."},
	{Key: "interior_photo", Label: "Interior", Hint: "Show the seats and the dashboard from the rear door."},
	{Key: "detail_photo", Label: "Detail", Hint: "Any scratch, dent or detail worth recording.", Optional: true},
}
