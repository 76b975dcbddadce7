// Package certificate は修了証のPDFを描画する。
//
// レイアウトは固定で、A4横向き1ページに枠線、表題、受講者名、講座名、
// 発行日、修了証番号、フッターを配置する。番号は発行時刻から生成し、保存しない。
package certificate
