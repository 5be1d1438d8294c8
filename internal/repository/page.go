package repository

// DefaultPageSize 单次窗口查询的行数上限
// 后端单次查询有行数上限，超过的结果集必须分窗口取回
const DefaultPageSize = 1000

// FetchAll 以固定窗口反复调用 fetch，直到取完为止
// 终止条件：返回行数不足一页、空页、或出错
// 出错时返回已累积的行和第一个错误（不重试）
func FetchAll[T any](fetch func(offset, limit int) ([]T, error)) ([]T, error) {
	return FetchAllPages(DefaultPageSize, fetch)
}

// FetchAllPages 指定窗口大小的取回循环
func FetchAllPages[T any](pageSize int, fetch func(offset, limit int) ([]T, error)) ([]T, error) {
	var all []T
	for offset := 0; ; offset += pageSize {
		page, err := fetch(offset, pageSize)
		all = append(all, page...)
		if err != nil {
			return all, err
		}
		if len(page) < pageSize {
			return all, nil
		}
	}
}
