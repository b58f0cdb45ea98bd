// 版权所有 2025 AuditFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 extract 从模型自由文本输出中恢复结构化负载（JSON）。

# 概述

机器人在"结构化推荐"模式下被要求只输出一份纯 JSON 文档。模型实际
输出可能完全合规、夹带散文、或使用 markdown 代码块包裹。extract
按固定顺序尝试恢复，并保留"严格/宽松"这一区分——它本身就是下游
格式合规评分（persona p6）消费的信号。

# 恢复策略

每次调用按序尝试，首个成功者胜出：

  1. 严格解析：整段裁剪后的文本必须是一份 JSON 文档（对象或数组）。
     成功即代表模型完全遵守了"只回复纯 JSON"的输出契约。
  2. 宽松提取：优先匹配首个 ```json 代码块；否则扫描首个配平的
     大括号子串。子串解析成功即恢复，失败返回空序列。

任何解析失败都被吸收为"未提取到负载"，绝不以错误形式上抛。
*/
package extract
