package extract

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Payload 是从模型输出中恢复的一份结构化负载。
// Strict 标记该负载是否来自严格解析（整段文本即 JSON 文档）。
type Payload struct {
	Value  json.RawMessage `json:"value"`
	Strict bool            `json:"strict"`
}

// fencedBlockRe 匹配首个 markdown 代码块（```json ... ``` 或 ``` ... ```）。
var fencedBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")

// Extract 从原始模型文本中恢复结构化负载，返回零或一个元素的序列。
// 本函数从不返回错误、从不 panic：所有解析失败都表示为空序列。
func Extract(raw string) []Payload {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}

	// 1. 严格解析：整段文本就是一份 JSON 文档
	if isDocument(trimmed) && json.Valid([]byte(trimmed)) {
		return []Payload{{Value: json.RawMessage(trimmed), Strict: true}}
	}

	// 2. 宽松提取：markdown 代码块优先
	if m := fencedBlockRe.FindStringSubmatch(trimmed); len(m) > 1 {
		candidate := strings.TrimSpace(m[1])
		if isDocument(candidate) && json.Valid([]byte(candidate)) {
			return []Payload{{Value: json.RawMessage(candidate), Strict: false}}
		}
	}

	// 2b. 首个配平的大括号子串
	if candidate, ok := firstBalancedObject(trimmed); ok {
		if json.Valid([]byte(candidate)) {
			return []Payload{{Value: json.RawMessage(candidate), Strict: false}}
		}
	}

	return nil
}

// isDocument 判断文本是否以 JSON 文档定界符开头（对象或数组）。
// 标量（"5"、"true"）虽是合法 JSON，但不满足"结构化文档"契约。
func isDocument(s string) bool {
	return len(s) > 0 && (s[0] == '{' || s[0] == '[')
}

// firstBalancedObject 返回文本中首个大括号配平的子串。
// 扫描时跳过字符串字面量内部的大括号与转义引号。
func firstBalancedObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
