package hue

import "fmt"

// GroupState represents the aggregate power state of a Hue group (v1 API)
type GroupState struct {
	AllOn bool `json:"all_on"`
	AnyOn bool `json:"any_on"`
}

// LightState represents the last applied state of a light or group action (v1 API)
type LightState struct {
	On        bool      `json:"on"`
	Bri       uint8     `json:"bri,omitempty"`
	Hue       uint16    `json:"hue"`
	Sat       uint8     `json:"sat,omitempty"`
	Xy        []float32 `json:"xy,omitempty"`
	Ct        uint16    `json:"ct,omitempty"`
	ColorMode string    `json:"colormode,omitempty"`
	Reachable bool      `json:"reachable,omitempty"`
}

// Group represents a Hue group (v1 API)
type Group struct {
	ID     string     `json:"-"`
	Name   string     `json:"name"`
	Lights []string   `json:"lights"`
	Type   string     `json:"type"`
	State  GroupState `json:"state"`
	Action LightState `json:"action"`
}

// Light represents a Hue light (v1 API)
type Light struct {
	ID        string     `json:"-"`
	Name      string     `json:"name"`
	Type      string     `json:"type"`
	ModelID   string     `json:"modelid,omitempty"`
	UniqueID  string     `json:"uniqueid,omitempty"`
	State     LightState `json:"state"`
	ProductID string     `json:"productid,omitempty"`
}

// StateUpdate is a partial state change for a light or group action.
// Pointer fields are only sent when set, so zero values (hue 0, off) are explicit.
type StateUpdate struct {
	On  *bool   `json:"on,omitempty"`
	Hue *uint16 `json:"hue,omitempty"`
}

// SetOn returns a copy of the update with the power field set.
func (u StateUpdate) SetOn(on bool) StateUpdate {
	u.On = &on
	return u
}

// SetHue returns a copy of the update with the hue field set.
func (u StateUpdate) SetHue(hue uint16) StateUpdate {
	u.Hue = &hue
	return u
}

// APIError is an error entry returned by the bridge in a response array.
type APIError struct {
	Type        int    `json:"type"`
	Address     string `json:"address"`
	Description string `json:"description"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("hue api error %d at %s: %s", e.Type, e.Address, e.Description)
}

// Unauthorized reports whether the bridge rejected the application key.
func (e *APIError) Unauthorized() bool {
	return e.Type == 1
}

// apiResponse is one element of a v1 response array.
type apiResponse struct {
	Success map[string]any `json:"success,omitempty"`
	Error   *APIError      `json:"error,omitempty"`
}
