package models

import "testing"

func TestSection_CloneIsDeep(t *testing.T) {
	orig := Section{
		ID:   "s1",
		Type: "faq",
		Data: map[string]interface{}{
			"heading": "Questions",
			"items": []map[string]interface{}{
				{"question": "Why?", "answer": "Because."},
			},
		},
	}
	cp := orig.Clone()
	cp.Data["heading"] = "Changed"
	cp.Data["items"].([]map[string]interface{})[0]["question"] = "How?"

	if orig.Data["heading"] != "Questions" {
		t.Errorf("heading mutated through clone: %v", orig.Data["heading"])
	}
	if q := orig.Data["items"].([]map[string]interface{})[0]["question"]; q != "Why?" {
		t.Errorf("repeater item mutated through clone: %v", q)
	}
}

func TestCloneSections_nil(t *testing.T) {
	if got := CloneSections(nil); got != nil {
		t.Errorf("CloneSections(nil) = %v, want nil", got)
	}
}
