package dto

// CreateTeacherRequest captures POST /teachers payload.
type CreateTeacherRequest struct {
	FullName  string `json:"fullName" validate:"required,min=2,max=120"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"omitempty,min=8,max=20"`
	Expertise string `json:"expertise" validate:"omitempty,max=200"`
}

// UpdateTeacherRequest captures PUT /teachers/:id payload.
type UpdateTeacherRequest struct {
	FullName  *string `json:"fullName,omitempty" validate:"omitempty,min=2,max=120"`
	Email     *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone     *string `json:"phone,omitempty" validate:"omitempty,min=8,max=20"`
	Expertise *string `json:"expertise,omitempty" validate:"omitempty,max=200"`
	Active    *bool   `json:"active,omitempty"`
}

// TeacherQuery filters teacher listings.
type TeacherQuery struct {
	Search   string `form:"search"`
	Active   *bool  `form:"active"`
	Page     int    `form:"page"`
	PageSize int    `form:"pageSize"`
}
