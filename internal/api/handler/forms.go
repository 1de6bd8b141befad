package handler

import "github.com/quillhub/blog/internal/core/domain"

// formSchema describes an input form so clients can render it.
type formSchema struct {
	Title  string      `json:"title"`
	Submit string      `json:"submit"`
	Fields []formField `json:"fields"`
}

type formField struct {
	Name      string   `json:"name"`
	Type      string   `json:"type"`
	Label     string   `json:"label"`
	Required  bool     `json:"required"`
	MinLength int      `json:"min_length,omitempty"`
	MaxLength int      `json:"max_length,omitempty"`
	Accept    []string `json:"accept,omitempty"`
}

func registerForm() formSchema {
	return formSchema{
		Title:  "Sign Up",
		Submit: "Sign Up",
		Fields: []formField{
			{Name: "username", Type: "text", Label: "Username", Required: true, MinLength: 2, MaxLength: 20},
			{Name: "email", Type: "email", Label: "Email", Required: true, MaxLength: 120},
			{Name: "password", Type: "password", Label: "Password", Required: true, MaxLength: 72},
			{Name: "confirm_password", Type: "password", Label: "Confirm Password", Required: true},
		},
	}
}

func loginForm() formSchema {
	return formSchema{
		Title:  "Log In",
		Submit: "Login",
		Fields: []formField{
			{Name: "email", Type: "email", Label: "Email", Required: true},
			{Name: "password", Type: "password", Label: "Password", Required: true},
			{Name: "remember", Type: "checkbox", Label: "Remember Me"},
		},
	}
}

func accountForm() formSchema {
	return formSchema{
		Title:  "Account Info",
		Submit: "Update",
		Fields: []formField{
			{Name: "username", Type: "text", Label: "Username", Required: true, MinLength: 2, MaxLength: 20},
			{Name: "email", Type: "email", Label: "Email", Required: true, MaxLength: 120},
			{Name: "picture", Type: "file", Label: "Update Profile Picture", Accept: []string{".jpg", ".jpeg", ".png"}},
		},
	}
}

func postForm(title string) formSchema {
	return formSchema{
		Title:  title,
		Submit: "Post",
		Fields: []formField{
			{Name: "title", Type: "text", Label: "Title", Required: true, MaxLength: domain.MaxTitleLength},
			{Name: "content", Type: "textarea", Label: "Content", Required: true},
		},
	}
}

func resetRequestForm() formSchema {
	return formSchema{
		Title:  "Reset Password",
		Submit: "Request Password Reset",
		Fields: []formField{
			{Name: "email", Type: "email", Label: "Email", Required: true},
		},
	}
}

func resetForm() formSchema {
	return formSchema{
		Title:  "Reset Password",
		Submit: "Reset Password",
		Fields: []formField{
			{Name: "password", Type: "password", Label: "Password", Required: true, MaxLength: 72},
			{Name: "confirm_password", Type: "password", Label: "Confirm Password", Required: true},
		},
	}
}
