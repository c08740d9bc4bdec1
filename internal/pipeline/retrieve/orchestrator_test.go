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

package retrieve

import (
	"context"
	"errors"
	"testing"
	"time"

	"support-platform/internal/evidence"
	"support-platform/internal/pipeline/common"
	"support-platform/pkg/log"
)

// stubSource 可编程证据源桩
type stubSource struct {
	name       string
	contextual evidence.Criticality
	envelope   *evidence.Envelope
	err        error
	delay      time.Duration
}

func (s *stubSource) Name() string { return s.name }
func (s *stubSource) Contextual(c *common.Case, it *common.Intent) evidence.Criticality {
	return s.contextual
}
func (s *stubSource) Retrieve(ctx context.Context, c *common.Case, it *common.Intent) (*evidence.Envelope, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.envelope, nil
}

func testLogger(t *testing.T) *log.Logger {
	t.Helper()
	logger, err := log.NewLogger(&log.Config{Level: "error", Format: "text"})
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	return logger
}

func testPolicy() *evidence.Policy {
	return evidence.NewPolicy([]evidence.ToolSpec{
		{Name: evidence.SourceRecords, MinCriticality: evidence.DecisionCritical},
		{Name: evidence.SourcePolicy, MinCriticality: evidence.DecisionCritical},
		{Name: evidence.SourceRecall, MinCriticality: evidence.NonCritical},
	}, 2*time.Second)
}

func run(t *testing.T, o *Orchestrator, activate []string) (*common.RunContext, *Outcome) {
	t.Helper()
	rc := common.NewRunContext()
	out := o.Run(context.Background(), rc,
		&common.Case{ConversationID: "c1"},
		&common.Intent{IssueType: common.IssueOrderStatus},
		&common.Plan{Activate: activate})
	return rc, out
}

func TestEmptyActivationSkipsRetrieval(t *testing.T) {
	o := NewOrchestrator(testPolicy(), testLogger(t))
	rc := common.NewRunContext()
	out := o.Run(context.Background(), rc, &common.Case{}, &common.Intent{}, &common.Plan{})
	if len(out.Statuses) != 0 || out.BlockAuto || len(out.CriticalFailures) != 0 {
		t.Errorf("空激活集应直接返回空结果：%+v", out)
	}
	if rc.Evidence.Len() != 0 {
		t.Errorf("不应有信封，got %d", rc.Evidence.Len())
	}
}

func TestAllSourcesComplete(t *testing.T) {
	o := NewOrchestrator(testPolicy(), testLogger(t),
		&stubSource{name: evidence.SourceRecords, envelope: evidence.NewEnvelope(evidence.SourceRecords)},
		&stubSource{name: evidence.SourcePolicy, envelope: evidence.NewEnvelope(evidence.SourcePolicy)},
		&stubSource{name: evidence.SourceRecall, envelope: evidence.NewEnvelope(evidence.SourceRecall)},
	)
	rc, out := run(t, o, []string{evidence.SourceRecords, evidence.SourcePolicy, evidence.SourceRecall})
	if len(out.Statuses) != 3 {
		t.Fatalf("statuses = %v", out.Statuses)
	}
	for src, st := range out.Statuses {
		if !st.Completed || len(st.Succeeded) != 1 {
			t.Errorf("%s: %+v", src, st)
		}
	}
	if rc.Evidence.Len() != 3 {
		t.Errorf("envelopes = %d, want 3", rc.Evidence.Len())
	}
	if out.BlockAuto || len(out.CriticalFailures) != 0 {
		t.Errorf("全部成功不应有失败标记：%+v", out)
	}
}

// 单源失败不取消同级调用，失败按策略归类为数据
func TestDecisionCriticalFailureRecordsEnvelope(t *testing.T) {
	o := NewOrchestrator(testPolicy(), testLogger(t),
		&stubSource{name: evidence.SourceRecords, err: errors.New("db down")},
		&stubSource{name: evidence.SourceRecall, envelope: evidence.NewEnvelope(evidence.SourceRecall)},
	)
	rc, out := run(t, o, []string{evidence.SourceRecords, evidence.SourceRecall})

	if out.BlockAuto {
		t.Error("decision_critical 失败不应禁用 auto")
	}
	if len(out.CriticalFailures) != 1 || out.CriticalFailures[0] != evidence.SourceRecords {
		t.Errorf("critical failures = %v", out.CriticalFailures)
	}
	failedEnvs := rc.Evidence.Get(evidence.SourceRecords)
	if len(failedEnvs) != 1 || failedEnvs[0].Result.Status != evidence.StatusFailed {
		t.Errorf("decision_critical 失败应记录失败信封：%+v", failedEnvs)
	}
	if len(rc.Evidence.Get(evidence.SourceRecall)) != 1 {
		t.Error("同级成功调用不应被失败取消")
	}
}

func TestSafetyCriticalFailureBlocksAutoWithoutEnvelope(t *testing.T) {
	o := NewOrchestrator(testPolicy(), testLogger(t),
		&stubSource{name: evidence.SourceRecords, contextual: evidence.SafetyCritical, err: errors.New("db down")},
	)
	rc, out := run(t, o, []string{evidence.SourceRecords})

	if !out.BlockAuto {
		t.Error("safety_critical 失败必须禁用 auto")
	}
	if len(out.CriticalFailures) != 1 {
		t.Errorf("critical failures = %v", out.CriticalFailures)
	}
	if rc.Evidence.Len() != 0 {
		t.Errorf("safety_critical 失败不得记录任何信封，got %d", rc.Evidence.Len())
	}
	if !out.Statuses[evidence.SourceRecords].Completed {
		t.Error("失败源的状态仍应标记完成")
	}
}

func TestNonCriticalFailureOnlyRecords(t *testing.T) {
	o := NewOrchestrator(testPolicy(), testLogger(t),
		&stubSource{name: evidence.SourceRecall, err: errors.New("redis down")},
	)
	rc, out := run(t, o, []string{evidence.SourceRecall})
	if out.BlockAuto || len(out.CriticalFailures) != 0 {
		t.Errorf("non_critical 失败不应影响路由：%+v", out)
	}
	if rc.Evidence.Len() != 1 {
		t.Errorf("non_critical 失败仍应记录失败信封，got %d", rc.Evidence.Len())
	}
}

func TestTimeoutTreatedAsFailure(t *testing.T) {
	p := evidence.NewPolicy([]evidence.ToolSpec{
		{Name: evidence.SourcePolicy, MinCriticality: evidence.DecisionCritical, Timeout: 20 * time.Millisecond},
	}, time.Second)
	o := NewOrchestrator(p, testLogger(t),
		&stubSource{name: evidence.SourcePolicy, delay: 200 * time.Millisecond, envelope: evidence.NewEnvelope(evidence.SourcePolicy)},
	)
	_, out := run(t, o, []string{evidence.SourcePolicy})
	st := out.Statuses[evidence.SourcePolicy]
	if !st.Completed || len(st.Failed) != 1 {
		t.Errorf("超时应归类为失败：%+v", st)
	}
	if len(out.CriticalFailures) != 1 {
		t.Errorf("critical failures = %v", out.CriticalFailures)
	}
}

func TestUnregisteredSourceSkipped(t *testing.T) {
	o := NewOrchestrator(testPolicy(), testLogger(t),
		&stubSource{name: evidence.SourceRecall, envelope: evidence.NewEnvelope(evidence.SourceRecall)},
	)
	_, out := run(t, o, []string{evidence.SourceRecall, "made.up"})
	if len(out.Statuses) != 1 {
		t.Errorf("未注册源应被跳过：%v", out.Statuses)
	}
}
