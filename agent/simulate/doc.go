// 版权所有 2025 AuditFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 simulate 实现合成客户与领域机器人之间的双角色会话状态机。

# 概述

一次会话运行由显式有限状态机驱动：customer_turn → chatbot_turn →
customer_turn → … → done。每个轮次产生一条 Message，状态以不可变
快照形式演进——纯转移函数 Apply(state, turnResult) 返回新快照，
不存在跨轮次的隐藏可变状态。

# 轮次契约

  - 客户轮：以 persona 的系统行为与采样温度调用外部生成器，产出
    下一条客户消息。
  - 机器人轮：先用一次辅助生成调用探测意图（最新客户消息是否指明
    了具体地点/目标）；肯定则进入"结构化推荐"模式（注入产品目录，
    期望输出完整 JSON 文档），否则进入自由会话模式。应答原文追加
    为 Message，并经 extract 包恢复结构化负载。

# 终止

每个轮次结束后评估终止条件，二者独立、或运算组合：

  - 最新消息包含完成哨兵词（大小写不敏感）
  - 历史长度达到轮次上限

Finished 一旦置真不再复位，状态机不再执行任何轮次。

# 失败语义

未知 persona 在任何轮次执行前快速失败（致命配置错误）。结构化模式
下应答解析失败不致命：轮次照常追加原文，提取记为零负载，会话继续。
意图探测调用自身失败按生成错误上抛（见 DESIGN.md 的开放问题决策）。
*/
package simulate
