// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package common

import (
	"errors"
	"strings"
	"testing"
)

func TestRunContextSingleWriter(t *testing.T) {
	rc := NewRunContext()
	if !strings.HasPrefix(rc.RunID, "run-") {
		t.Errorf("RunID = %q", rc.RunID)
	}

	if err := rc.SetCase(&Case{ConversationID: "c1"}); err != nil {
		t.Fatalf("first SetCase: %v", err)
	}
	if err := rc.SetCase(&Case{ConversationID: "c2"}); !errors.Is(err, ErrSlotWritten) {
		t.Errorf("second SetCase = %v, want ErrSlotWritten", err)
	}
	if rc.Case().ConversationID != "c1" {
		t.Errorf("重复写入不得覆盖首次结果")
	}

	if err := rc.SetIntent(&Intent{IssueType: IssueGreeting}); err != nil {
		t.Fatalf("SetIntent: %v", err)
	}
	if err := rc.SetIntent(&Intent{}); !errors.Is(err, ErrSlotWritten) {
		t.Errorf("second SetIntent = %v", err)
	}
	if err := rc.SetPlan(&Plan{}); err != nil {
		t.Fatalf("SetPlan: %v", err)
	}
	if err := rc.SetPlan(&Plan{}); !errors.Is(err, ErrSlotWritten) {
		t.Errorf("second SetPlan = %v", err)
	}
	if err := rc.SetAnalysis(&Analysis{}); err != nil {
		t.Fatalf("SetAnalysis: %v", err)
	}
	if err := rc.SetAnalysis(&Analysis{}); !errors.Is(err, ErrSlotWritten) {
		t.Errorf("second SetAnalysis = %v", err)
	}
	if err := rc.SetDecision(&RoutingDecision{Decision: RouteAuto}); err != nil {
		t.Fatalf("SetDecision: %v", err)
	}
	if err := rc.SetDecision(&RoutingDecision{}); !errors.Is(err, ErrSlotWritten) {
		t.Errorf("second SetDecision = %v", err)
	}
}

func TestRunContextEvents(t *testing.T) {
	rc := NewRunContext()
	rc.Emit("case_created", "intake", map[string]any{"order_id": "o1"})
	rc.Emit("intent_classified", "intent", nil)
	events := rc.Events()
	if len(events) != 2 {
		t.Fatalf("events = %d", len(events))
	}
	if events[0].Type != "case_created" || events[0].Stage != "intake" {
		t.Errorf("event[0] = %+v", events[0])
	}
	// 快照不受后续追加影响
	rc.Emit("decision_made", "route", nil)
	if len(events) != 2 {
		t.Errorf("Events 应返回快照")
	}
}

func TestRunContextRetrievalCopy(t *testing.T) {
	rc := NewRunContext()
	if got := rc.Retrieval(); len(got) != 0 {
		t.Errorf("未写入时应返回空 map，got %v", got)
	}
	if err := rc.SetRetrieval(map[string]RetrievalStatus{"records.lookup": {Completed: true}}); err != nil {
		t.Fatalf("SetRetrieval: %v", err)
	}
	m := rc.Retrieval()
	m["records.lookup"] = RetrievalStatus{}
	if !rc.Retrieval()["records.lookup"].Completed {
		t.Errorf("Retrieval 应返回副本")
	}
}

func TestIssueTypeConversational(t *testing.T) {
	for _, it := range []IssueType{IssueGreeting, IssueAcknowledgment, IssueClarification, IssueSimpleQuestion} {
		if !it.Conversational() {
			t.Errorf("%s 应为会话类", it)
		}
	}
	for _, it := range []IssueType{IssueRefundRequest, IssueComplaint, IssueUnknown} {
		if it.Conversational() {
			t.Errorf("%s 不应为会话类", it)
		}
	}
}
