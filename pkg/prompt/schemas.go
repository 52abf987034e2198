package prompt

import "github.com/jmylchreest/distill/pkg/schema"

// EntityTypes are the canonical entity categories the model is asked for.
var EntityTypes = []string{"Person", "Organization", "Location", "Product", "Event", "Date"}

type keyPoint struct {
	Key   string `json:"key" description:"The point name or category"`
	Value string `json:"value" description:"The specific detail, fact or statistic"`
}

type keyPointsOutput struct {
	KeyPoints []keyPoint `json:"key_points" description:"The most important points in the content"`
}

type entity struct {
	Name     string   `json:"name" description:"The entity as it is most commonly named"`
	Type     string   `json:"type" description:"Person, Organization, Location, Product, Event or Date"`
	Mentions []string `json:"mentions" description:"Every way the entity is referred to in the content"`
}

type entitiesOutput struct {
	Entities []entity `json:"entities" description:"Named entities found in the content"`
}

// Output schemas for the fixed extraction modes.
var (
	KeyPointsSchema = schema.MustSchema[keyPointsOutput](schema.WithName("key_points"))
	EntitiesSchema  = schema.MustSchema[entitiesOutput](schema.WithName("entities"))
)

// CustomJSONSchema wraps a user schema as the value of "data".
func CustomJSONSchema(s schema.Schema) map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"data": s.ToJSONSchema(),
		},
		"required":             []string{"data"},
		"additionalProperties": false,
	}
}

// OutputSchema returns the JSON schema the model is asked to follow, or nil
// when the mode has no fixed shape.
func OutputSchema(mode Mode, custom *schema.Schema) map[string]any {
	switch mode {
	case ModeKeyPoints:
		return KeyPointsSchema.ToJSONSchema()
	case ModeEntities:
		return EntitiesSchema.ToJSONSchema()
	case ModeCustom:
		if custom != nil {
			return CustomJSONSchema(*custom)
		}
	}
	return nil
}
