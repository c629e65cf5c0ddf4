package settings

// SetSettingRequest is the body of PUT /settings/:key.
type SetSettingRequest struct {
	Value *string `json:"value" validate:"required,max=65536"`
}

// SettingDto is a single setting as returned by the API.
type SettingDto struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}
