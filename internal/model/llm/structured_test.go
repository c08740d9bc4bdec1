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

package llm

import (
	"context"
	"errors"
	"testing"
)

type fakeClient struct {
	reply string
	err   error
}

func (f *fakeClient) Generate(prompt string, options GenerateOptions) (string, error) {
	return f.reply, f.err
}
func (f *fakeClient) GenerateWithContext(ctx context.Context, prompt string, options GenerateOptions) (string, error) {
	return f.reply, f.err
}
func (f *fakeClient) Model() string    { return "fake" }
func (f *fakeClient) Provider() string { return "fake" }

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{`{"a":1}`, `{"a":1}`, true},
		{"根据分析，结果如下：\n{\"a\":1}\n希望有帮助", `{"a":1}`, true},
		{`{"outer":{"inner":2}}`, `{"outer":{"inner":2}}`, true},
		{"no json here", "", false},
		{"only closing }", "", false},
	}
	for _, c := range cases {
		got, ok := ExtractJSON(c.in)
		if ok != c.ok || got != c.want {
			t.Errorf("ExtractJSON(%q) = %q, %v", c.in, got, ok)
		}
	}
}

func TestGenerateObject(t *testing.T) {
	type out struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	client := &fakeClient{reply: `模型说明 {"name":"refund","count":2} 结束`}
	got, err := GenerateObject[out](context.Background(), client, "p", GenerateOptions{})
	if err != nil {
		t.Fatalf("GenerateObject: %v", err)
	}
	if got.Name != "refund" || got.Count != 2 {
		t.Errorf("got = %+v", got)
	}
}

func TestGenerateObjectSchemaError(t *testing.T) {
	type out struct{ A int }
	client := &fakeClient{reply: "抱歉，我无法输出"}
	_, err := GenerateObject[out](context.Background(), client, "p", GenerateOptions{})
	if !IsSchemaError(err) {
		t.Fatalf("err = %v, want SchemaError", err)
	}
	var se *SchemaError
	if !errors.As(err, &se) || se.Reply == "" {
		t.Errorf("SchemaError 应携带原始回复：%+v", se)
	}
}

func TestGenerateObjectTransportError(t *testing.T) {
	type out struct{ A int }
	client := &fakeClient{err: errors.New("connection reset")}
	_, err := GenerateObject[out](context.Background(), client, "p", GenerateOptions{})
	if err == nil || IsSchemaError(err) {
		t.Errorf("传输错误不应归类为 SchemaError: %v", err)
	}
}

func TestGenerateObjectNilClient(t *testing.T) {
	_, err := GenerateObject[struct{}](context.Background(), nil, "p", GenerateOptions{})
	if err == nil {
		t.Fatal("nil client 应返回错误而非 panic")
	}
	if IsSchemaError(err) {
		t.Error("nil client 不是解析失败")
	}
}
