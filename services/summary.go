package services

import (
	"fmt"
	"sort"
	"strings"

	"ghprojectsync/models"
)

// PrintSummary はタスクの統計サマリーを標準出力に表示します
func PrintSummary(tasks []models.TaskInfo) {
	if len(tasks) == 0 {
		fmt.Println("タスクが見つかりませんでした")
		return
	}

	fmt.Println("\n=== タスク統計サマリー ===")
	fmt.Printf("総タスク数: %d\n", len(tasks))

	// 種別ごとの集計
	contentTypes := make(map[string]int)
	for _, task := range tasks {
		contentTypes[task.ContentType]++
	}
	fmt.Println("\n種別ごとの集計:")
	printCounts(contentTypes, false)

	// ステータスごとの集計
	statuses := make(map[string]int)
	hasStatus := false
	for _, task := range tasks {
		status := task.Status
		if status == "" {
			status = "ステータス未設定"
		} else {
			hasStatus = true
		}
		statuses[status]++
	}
	if hasStatus {
		fmt.Println("\nステータスごとの集計:")
		printCounts(statuses, false)
	}

	// 優先度ごとの集計
	priorities := make(map[string]int)
	hasPriority := false
	for _, task := range tasks {
		priority := task.Priority
		if priority == "" {
			priority = "優先度未設定"
		} else {
			hasPriority = true
		}
		priorities[priority]++
	}
	if hasPriority {
		fmt.Println("\n優先度ごとの集計:")
		printCounts(priorities, false)
	}

	// 担当者ごとの集計
	assigneeCounts := make(map[string]int)
	for _, task := range tasks {
		if len(task.Assignees) == 0 {
			assigneeCounts["未割り当て"]++
			continue
		}
		for _, assignee := range task.Assignees {
			assigneeCounts[assignee]++
		}
	}
	if len(assigneeCounts) > 0 {
		fmt.Println("\n担当者ごとの集計:")
		printCounts(assigneeCounts, true)
	}

	// コメント数の集計
	commentStats := make(map[string]int)
	totalComments := 0
	for _, task := range tasks {
		count := len(task.Comments)
		totalComments += count
		switch {
		case count == 0:
			commentStats["コメントなし"]++
		case count <= 5:
			commentStats["1〜5件のコメント"]++
		case count <= 10:
			commentStats["6〜10件のコメント"]++
		default:
			commentStats["11件以上のコメント"]++
		}
	}
	if totalComments > 0 {
		fmt.Println("\nコメント統計:")
		fmt.Printf("  総コメント数: %d\n", totalComments)
		fmt.Printf("  タスクあたり平均: %.1f 件\n", float64(totalComments)/float64(len(tasks)))
		printCounts(commentStats, false)
	}

	// 説明とコメントの有無
	withDesc := 0
	for _, task := range tasks {
		if strings.TrimSpace(task.Description) != "" {
			withDesc++
		}
	}
	withComments := len(tasks) - commentStats["コメントなし"]
	fmt.Println("\n内容統計:")
	fmt.Printf("  説明のあるタスク: %d/%d (%.1f%%)\n", withDesc, len(tasks), percent(withDesc, len(tasks)))
	fmt.Printf("  コメントのあるタスク: %d/%d (%.1f%%)\n", withComments, len(tasks), percent(withComments, len(tasks)))
}

// printCounts は集計マップを表示します
// byCount が真の場合は件数の多い順、それ以外は名前順に並べます
func printCounts(counts map[string]int, byCount bool) {
	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	if byCount {
		sort.Slice(keys, func(i, j int) bool {
			if counts[keys[i]] != counts[keys[j]] {
				return counts[keys[i]] > counts[keys[j]]
			}
			return keys[i] < keys[j]
		})
	} else {
		sort.Strings(keys)
	}
	for _, key := range keys {
		fmt.Printf("  %s: %d\n", key, counts[key])
	}
}

// percent は割合をパーセントで返します
func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}
