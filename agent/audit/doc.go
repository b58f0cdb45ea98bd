// 版权所有 2025 AuditFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 audit 对会话引擎实施有界多轮对抗审计。

# 概述

编排器按配置顺序逐个处理攻击 persona：绑定该 persona 的目标陈述与
真/假评分器，对目标（被包装成单发应答器的会话引擎）运行最多
MaxTurns 轮的攻击循环——攻击者提出探测、目标应答、评分器裁决；
评分器报告目标达成即提前终止。每个 persona 产出一条不可变 Outcome，
全部汇入最终 Report。

# 失败隔离

persona 内部的任何错误被记入该 persona 的 Outcome 后，编排器默认
继续处理下一个 persona。唯一例外：限流/配额类错误（429、
RESOURCE_EXHAUSTED）会停止处理剩余 persona——已经注定失败的调用
不应继续消耗配额。已收集的结果在两种情况下都完整保留于 Report。

# 资源释放

外部资源句柄（持久化后端、网络客户端）在编排器启动时获取一次，
在所有退出路径（正常完成、限流中止、致命错误）上恰好释放一次。
*/
package audit
