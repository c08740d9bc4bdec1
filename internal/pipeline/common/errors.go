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

import "fmt"

// StageError 管线阶段错误，携带阶段名与运行 ID
type StageError struct {
	Stage string
	RunID string
	Err   error
}

func (e *StageError) Error() string {
	if e.RunID != "" {
		return fmt.Sprintf("stage %s (run %s): %v", e.Stage, e.RunID, e.Err)
	}
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// NewStageError 创建阶段错误
func NewStageError(stage, runID string, err error) *StageError {
	return &StageError{Stage: stage, RunID: runID, Err: err}
}
