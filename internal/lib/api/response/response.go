package response

type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

func Ok(data interface{}) Response {
	return Response{
		Success: true,
		Data:    data,
	}
}

func Error(message string) Response {
	return Response{
		Success: false,
		Message: message,
	}
}

// ErrorWithData is used when the client needs context to roll back its own state.
func ErrorWithData(message string, data interface{}) Response {
	return Response{
		Success: false,
		Data:    data,
		Message: message,
	}
}
