package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEquipmentList_UnmarshalArray(t *testing.T) {
	var e EquipmentList
	err := json.Unmarshal([]byte(`["GPS", " life jackets ", ""]`), &e)

	assert.NoError(t, err)
	assert.Equal(t, EquipmentList{"GPS", "life jackets"}, e)
}

func TestEquipmentList_UnmarshalLegacyString(t *testing.T) {
	var e EquipmentList
	err := json.Unmarshal([]byte(`"GPS, life jackets,sonar"`), &e)

	assert.NoError(t, err)
	assert.Equal(t, EquipmentList{"GPS", "life jackets", "sonar"}, e)
}

func TestEquipmentList_UnmarshalInvalid(t *testing.T) {
	var e EquipmentList
	err := json.Unmarshal([]byte(`42`), &e)

	assert.Error(t, err)
}
