package openapi

import "maps"

func errorContent() map[string]*MediaType {
	return map[string]*MediaType{
		"application/json": {Schema: SchemaRef("Error")},
	}
}

// NewComponents creates Components with the error envelope and the shared
// error responses every operation can reference.
func NewComponents() *Components {
	return &Components{
		Schemas: map[string]*Schema{
			"Error": {
				Type: "object",
				Properties: map[string]*Schema{
					"detail":     {Type: "string", Description: "Error message"},
					"request_id": {Type: "string", Description: "Request correlation id"},
				},
				Required: []string{"detail"},
			},
		},
		Responses: map[string]*Response{
			"BadRequest":      {Description: "Malformed request", Content: errorContent()},
			"NotFound":        {Description: "Resource not found", Content: errorContent()},
			"Conflict":        {Description: "State conflict", Content: errorContent()},
			"Unprocessable":   {Description: "Validation failed", Content: errorContent()},
			"PayloadTooLarge": {Description: "Request body exceeds the configured limit", Content: errorContent()},
			"TooManyRequests": {Description: "Rate limit exceeded", Content: errorContent()},
			"InternalError":   {Description: "Unexpected server error", Content: errorContent()},
		},
	}
}

// AddSchemas merges the given schemas into the component schemas.
func (c *Components) AddSchemas(schemas map[string]*Schema) {
	maps.Copy(c.Schemas, schemas)
}

// AddResponses merges the given responses into the component responses.
func (c *Components) AddResponses(responses map[string]*Response) {
	maps.Copy(c.Responses, responses)
}
