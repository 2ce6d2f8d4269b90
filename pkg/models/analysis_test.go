package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiseaseScoresKeepWireOrder(t *testing.T) {
	body := `{"status":"success","threshold":0.6,"total_diseases_detected":3,
		"detected_diseases":{"Pneumonia":0.95,"Lung Opacity":0.7,"Edema":0.42},
		"image_paths":[{"type":"heatmap","path":"/out/1.png","description":"Grad-CAM"}],
		"model_used":"densenet121"}`

	var res DiseaseScoreResult
	require.NoError(t, json.Unmarshal([]byte(body), &res))

	require.Len(t, res.DetectedDiseases, 3)
	assert.Equal(t, DiseaseScore{Label: "Pneumonia", Score: 0.95}, res.DetectedDiseases[0])
	assert.Equal(t, "Lung Opacity", res.DetectedDiseases[1].Label)
	assert.Equal(t, "Edema", res.DetectedDiseases[2].Label)
	assert.Equal(t, "densenet121", res.ModelUsed)
	require.Len(t, res.ImagePaths, 1)

	out, err := json.Marshal(res.DetectedDiseases)
	require.NoError(t, err)
	assert.Equal(t, `{"Pneumonia":0.95,"Lung Opacity":0.7,"Edema":0.42}`, string(out))
}

func TestDiseaseScoresRejectsNonObject(t *testing.T) {
	var d DiseaseScores
	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &d))
	assert.Error(t, json.Unmarshal([]byte(`{"A":"high"}`), &d))

	require.NoError(t, json.Unmarshal([]byte(`null`), &d))
	assert.Nil(t, d)
}

func TestRawAnalysisResultAccessors(t *testing.T) {
	scores := NewScoresResult(&DiseaseScoreResult{ModelUsed: "m", Threshold: 0.5})
	assert.Equal(t, KindDiseaseScores, scores.Kind)
	assert.Equal(t, "m", scores.ModelUsed())
	assert.Equal(t, 0.5, scores.Threshold())
	assert.Empty(t, scores.InferenceID())

	det := NewDetectionsResult(&DetectionResult{InferenceID: "abc"})
	assert.Equal(t, KindDetections, det.Kind)
	assert.Equal(t, "abc", det.InferenceID())
	assert.Empty(t, det.ModelUsed())

	var nilRes *RawAnalysisResult
	assert.Empty(t, nilRes.ModelUsed())

	assert.Equal(t, KindDetections, AnalysisTypeMRI.Kind())
	assert.Equal(t, KindDiseaseScores, AnalysisTypeXRay.Kind())
}
