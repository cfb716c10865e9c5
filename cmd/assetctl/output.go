package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"assetproxy/pkg/assetclient"

	"gopkg.in/yaml.v3"
)

const (
	outputJSON = "json"
	outputYAML = "yaml"
)

// render 以 JSON 或 YAML 输出。YAML 先经过 JSON 转换，保持与接口一致的字段名。
func render(w io.Writer, format string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}

	if format == outputYAML {
		var generic any
		if err := json.Unmarshal(data, &generic); err != nil {
			return fmt.Errorf("encode output: %w", err)
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	}

	_, err = fmt.Fprintln(w, string(data))
	return err
}

// renderResult 输出响应，请求失败时返回错误让进程以非零状态退出。
func renderResult(w io.Writer, format string, v any, outcome *assetclient.Outcome) error {
	if err := render(w, format, v); err != nil {
		return err
	}
	if !outcome.Success {
		if outcome.Error == "" {
			return errors.New("request failed")
		}
		return errors.New(outcome.Error)
	}
	return nil
}
