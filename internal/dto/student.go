package dto

// StudentRequest is the create/update payload of the student registry.
type StudentRequest struct {
	StudentID      string `json:"student_id" validate:"required,min=6,max=32"`
	FullName       string `json:"full_name" validate:"required,max=128"`
	Gender         string `json:"gender" validate:"required,oneof=MALE FEMALE OTHER"`
	GradeLevel     string `json:"grade_level"`
	Year           string `json:"year"`
	SchoolName     string `json:"school_name" validate:"required"`
	SchoolCode     string `json:"school_code"`
	SchoolAddress  string `json:"school_address" validate:"required"`
	StudentAddress string `json:"student_address"`
	SchoolPhone    string `json:"school_phone" validate:"required"`
	PrincipalName  string `json:"principal_name"`
}
