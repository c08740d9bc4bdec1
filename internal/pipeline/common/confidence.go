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

// 综合置信度权重：入案 0.2、意图 0.3、推理 0.5
const (
	weightIntake    = 0.2
	weightIntent    = 0.3
	weightReasoning = 0.5
)

// BlendConfidence 三段加权合成综合置信度，结果截断到 [0,1]
func BlendConfidence(intake, intent, reasoning float64) float64 {
	v := weightIntake*clamp01(intake) + weightIntent*clamp01(intent) + weightReasoning*clamp01(reasoning)
	return clamp01(v)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
