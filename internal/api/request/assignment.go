package request

// CreateAssignment holds the request body for assigning a device under a
// subscription. The subscription comes from the URL.
type CreateAssignment struct {
	DeviceID string  `json:"device_id" validate:"required"`
	Assignee string  `json:"assignee" validate:"required,min=1,max=255"`
	Notes    *string `json:"notes"`
}

// UpdateAssignment holds the request body for updating an assignment.
type UpdateAssignment struct {
	Assignee *string `json:"assignee" validate:"omitempty,min=1,max=255"`
	Notes    *string `json:"notes"`
}
