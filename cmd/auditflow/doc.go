// Copyright (c) AuditFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 AuditFlow 命令行程序入口。

# 概述

cmd/auditflow 是 AuditFlow 的可执行入口，提供两类子命令：simulate
（按配置中的单个 persona 模拟一段完整的客户/机器人会话）和 audit
（对全部 persona 串行执行有界对抗审计并输出报告）。程序支持 YAML
persona 配置加载、结构化日志（zap）、Prometheus 指标采集以及可选的
SQLite 审计持久化。

# 主要能力

  - 子命令：simulate（单会话模拟）、audit（对抗审计）、version
  - Gemini Provider：--api-key / GEMINI_API_KEY，--rpm 客户端限速
  - 审计持久化：--db 指定 SQLite 路径，退出时由编排器统一关闭
  - Metrics 服务器：--metrics-addr 在运行期间暴露 /metrics
  - 信号处理：SIGINT/SIGTERM 取消进行中的会话与审计
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
