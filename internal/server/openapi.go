package server

import (
	"net/http"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gin-gonic/gin"
)

// OpenAPIPath serves the API description.
const OpenAPIPath = "/api/openapi.json"

// OpenAPIDocument describes the routes served by NewRouter.
func OpenAPIDocument() *openapi3.T {
	validationError := openapi3.NewObjectSchema().
		WithProperty("field", openapi3.NewStringSchema()).
		WithProperty("message", openapi3.NewStringSchema()).
		WithProperty("code", openapi3.NewStringSchema())
	submission := openapi3.NewObjectSchema().
		WithProperty("formId", openapi3.NewStringSchema()).
		WithProperty("data", openapi3.NewObjectSchema())
	validation := openapi3.NewObjectSchema().
		WithProperty("valid", openapi3.NewBoolSchema()).
		WithProperty("errors", openapi3.NewArraySchema().WithItems(validationError))
	submitted := openapi3.NewObjectSchema().
		WithProperty("success", openapi3.NewBoolSchema()).
		WithProperty("message", openapi3.NewStringSchema()).
		WithProperty("data", openapi3.NewObjectSchema())
	enumValue := openapi3.NewObjectSchema().
		WithProperty("label", openapi3.NewStringSchema()).
		WithProperty("value", openapi3.NewStringSchema())
	options := openapi3.NewArraySchema().WithItems(enumValue)

	get := func(id, summary string, body *openapi3.Schema, params ...*openapi3.Parameter) *openapi3.PathItem {
		op := openapi3.NewOperation()
		op.OperationID = id
		op.Summary = summary
		for _, param := range params {
			op.AddParameter(param)
		}
		op.AddResponse(http.StatusOK, openapi3.NewResponse().WithDescription("OK").WithJSONSchema(body))
		return &openapi3.PathItem{Get: op}
	}
	post := func(id, summary string, body *openapi3.Schema) *openapi3.PathItem {
		op := openapi3.NewOperation()
		op.OperationID = id
		op.Summary = summary
		op.RequestBody = &openapi3.RequestBodyRef{
			Value: openapi3.NewRequestBody().WithRequired(true).WithJSONSchema(submission),
		}
		op.AddResponse(http.StatusOK, openapi3.NewResponse().WithDescription("OK").WithJSONSchema(body))
		op.AddResponse(http.StatusBadRequest, openapi3.NewResponse().WithDescription("Malformed body"))
		return &openapi3.PathItem{Post: op}
	}
	query := func(name string, required bool) *openapi3.Parameter {
		return openapi3.NewQueryParameter(name).WithRequired(required).WithSchema(openapi3.NewStringSchema())
	}

	schemaItem := get("getSchema", "Get a form schema", openapi3.NewObjectSchema(),
		openapi3.NewPathParameter("id").WithSchema(openapi3.NewStringSchema()))
	schemaItem.Get.AddResponse(http.StatusNotFound, openapi3.NewResponse().WithDescription("Unknown schema"))

	return &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:   APIName,
			Version: APIVersion,
		},
		Paths: openapi3.NewPaths(
			openapi3.WithPath("/api/schemas", get("listSchemas", "List form schemas",
				openapi3.NewObjectSchema().WithAnyAdditionalProperties())),
			openapi3.WithPath("/api/schemas/{id}", schemaItem),
			openapi3.WithPath("/api/countries", get("listCountries", "Country options", options)),
			openapi3.WithPath("/api/cities", get("listCities", "City options for a country", options, query("country", true))),
			openapi3.WithPath("/api/subcategories", get("listSubcategories", "Subcategory options", options, query("parent", true))),
			openapi3.WithPath(EmailCheckPath, get("checkEmail", "Check email availability",
				openapi3.NewObjectSchema().
					WithProperty("valid", openapi3.NewBoolSchema()).
					WithProperty("message", openapi3.NewStringSchema()),
				query("email", true))),
			openapi3.WithPath("/api/validate", post("validateForm", "Validate a submission", validation)),
			openapi3.WithPath("/api/submit", post("submitForm", "Validate and store a submission", submitted)),
			openapi3.WithPath("/api/submissions", get("listSubmissions", "Stored submissions",
				openapi3.NewArraySchema().WithItems(openapi3.NewObjectSchema()), query("form_id", false))),
			openapi3.WithPath("/api/health", get("health", "Health check", openapi3.NewObjectSchema().
				WithProperty("status", openapi3.NewStringSchema()).
				WithProperty("schemas_loaded", openapi3.NewIntegerSchema()).
				WithProperty("submissions_count", openapi3.NewIntegerSchema()))),
		),
	}
}

func openAPIHandler() gin.HandlerFunc {
	var (
		once sync.Once
		body []byte
		err  error
	)
	return func(c *gin.Context) {
		once.Do(func() { body, err = OpenAPIDocument().MarshalJSON() })
		if err != nil {
			_ = c.Error(NewInternal(err))
			return
		}
		c.Data(http.StatusOK, "application/json", body)
	}
}
